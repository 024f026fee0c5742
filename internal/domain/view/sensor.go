package view

import "ajax-cloud-bridge/internal/domain/model"

// SensorPresenter exposes one numeric reading of a device as a sensor entity.
// An optional formula rescales the reading before it is reported.
type SensorPresenter struct {
	kind    Kind
	field   Field
	suffix  string
	meta    Metadata
	applies func(d *model.DeviceRecord) bool
	formula *Formula
}

func NewTemperaturePresenter(formula *Formula) *SensorPresenter {
	return &SensorPresenter{
		kind:   KindTemperature,
		field:  FieldTemperature,
		suffix: "Temperature",
		meta: Metadata{
			Platform:    PlatformSensor,
			DeviceClass: "temperature",
			Unit:        "°C",
			StateClass:  "measurement",
		},
		applies: func(d *model.DeviceRecord) bool {
			return d.Type == model.DeviceTypeTemperature || d.Temperature != nil
		},
		formula: formula,
	}
}

func NewBatteryPresenter(formula *Formula) *SensorPresenter {
	return &SensorPresenter{
		kind:   KindBattery,
		field:  FieldBattery,
		suffix: "Battery",
		meta: Metadata{
			Platform:    PlatformSensor,
			DeviceClass: "battery",
			Unit:        "%",
			StateClass:  "measurement",
		},
		applies: func(d *model.DeviceRecord) bool { return d.Battery != nil },
		formula: formula,
	}
}

func NewHumidityPresenter(formula *Formula) *SensorPresenter {
	return &SensorPresenter{
		kind:   KindHumidity,
		field:  FieldHumidity,
		suffix: "Humidity",
		meta: Metadata{
			Platform:    PlatformSensor,
			DeviceClass: "humidity",
			Unit:        "%",
			StateClass:  "measurement",
		},
		applies: func(d *model.DeviceRecord) bool { return d.Humidity != nil },
		formula: formula,
	}
}

func (p *SensorPresenter) Applies(d *model.DeviceRecord) bool {
	return p.applies(d)
}

func (p *SensorPresenter) Describe(d *model.DeviceRecord) Entity {
	return Entity{
		UniqueID: "ajax_" + string(p.kind) + "_" + d.ID,
		Name:     nameOr(d, "Ajax") + " " + p.suffix,
		DeviceID: d.ID,
		Kind:     p.kind,
		Metadata: p.meta,
	}
}

func (p *SensorPresenter) State(d *model.DeviceRecord) interface{} {
	v, ok := NumericReading(d, p.field)
	if !ok {
		return nil
	}
	if p.formula != nil {
		return p.formula.Apply(v)
	}
	if p.field == FieldBattery {
		return *d.Battery
	}
	return v
}

// Attributes only carries signal strength, and only for battery entities.
func (p *SensorPresenter) Attributes(d *model.DeviceRecord) map[string]interface{} {
	if p.field != FieldBattery || d == nil || d.SignalStrength == nil {
		return nil
	}
	return map[string]interface{}{string(FieldSignalStrength): *d.SignalStrength}
}

func (p *SensorPresenter) GetMetadata() Metadata {
	return p.meta
}
