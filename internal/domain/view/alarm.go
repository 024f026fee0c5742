package view

import "ajax-cloud-bridge/internal/domain/model"

type AlarmPanelPresenter struct{}

func (p *AlarmPanelPresenter) Applies(d *model.DeviceRecord) bool {
	return d.Type == model.DeviceTypeHub
}

func (p *AlarmPanelPresenter) Describe(d *model.DeviceRecord) Entity {
	return Entity{
		UniqueID: "ajax_hub_" + d.ID,
		Name:     nameOr(d, "Ajax Hub"),
		DeviceID: d.ID,
		Kind:     KindAlarmPanel,
		Metadata: p.GetMetadata(),
	}
}

func (p *AlarmPanelPresenter) State(d *model.DeviceRecord) interface{} {
	if d == nil {
		return nil
	}
	return AlarmMode(d)
}

func (p *AlarmPanelPresenter) Attributes(d *model.DeviceRecord) map[string]interface{} {
	return nil
}

func (p *AlarmPanelPresenter) GetMetadata() Metadata {
	return Metadata{
		Platform: PlatformAlarmPanel,
		SupportedFeatures: []string{
			string(model.AlarmModeArmedHome),
			string(model.AlarmModeArmedAway),
			string(model.AlarmModeArmedNight),
		},
	}
}
