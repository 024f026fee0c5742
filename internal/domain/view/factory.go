package view

import (
	"ajax-cloud-bridge/internal/domain/model"
)

// order is the classification order; a device can yield several entities.
var order = []Kind{KindAlarmPanel, KindBinarySensor, KindTemperature, KindBattery, KindHumidity}

type Factory struct {
	presenters map[Kind]Presenter
}

// NewFactory builds the presenters. formulas may rescale the temperature,
// battery and humidity readings; missing entries leave values untouched.
func NewFactory(formulas map[Field]*Formula) *Factory {
	return &Factory{
		presenters: map[Kind]Presenter{
			KindAlarmPanel:   &AlarmPanelPresenter{},
			KindBinarySensor: &BinarySensorPresenter{},
			KindTemperature:  NewTemperaturePresenter(formulas[FieldTemperature]),
			KindBattery:      NewBatteryPresenter(formulas[FieldBattery]),
			KindHumidity:     NewHumidityPresenter(formulas[FieldHumidity]),
		},
	}
}

func (f *Factory) GetPresenter(kind Kind) (Presenter, bool) {
	p, ok := f.presenters[kind]
	return p, ok
}

// Classify enumerates the entities a snapshot yields. Devices of
// unrecognised types with no numeric readings yield nothing.
func (f *Factory) Classify(s *model.Snapshot) []Entity {
	if s == nil {
		return nil
	}
	var entities []Entity
	for i := range s.Devices {
		d := &s.Devices[i]
		for _, kind := range order {
			if p := f.presenters[kind]; p.Applies(d) {
				entities = append(entities, p.Describe(d))
			}
		}
	}
	return entities
}

// Render evaluates e against s. healthy is false while the last refresh
// failed, which makes every entity unavailable without discarding its
// last known state.
func (f *Factory) Render(s *model.Snapshot, e Entity, healthy bool) EntityState {
	d := s.Find(e.DeviceID)
	st := EntityState{
		Entity:    e,
		Available: healthy && IsAvailable(d),
	}
	if p, ok := f.presenters[e.Kind]; ok {
		st.State = p.State(d)
		st.Attributes = p.Attributes(d)
	}
	return st
}

// RenderAll renders every entity in order.
func (f *Factory) RenderAll(s *model.Snapshot, entities []Entity, healthy bool) []EntityState {
	out := make([]EntityState, 0, len(entities))
	for _, e := range entities {
		out = append(out, f.Render(s, e, healthy))
	}
	return out
}
