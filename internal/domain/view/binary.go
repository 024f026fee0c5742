package view

import "ajax-cloud-bridge/internal/domain/model"

var binaryDeviceClasses = map[model.DeviceType]string{
	model.DeviceTypeMotion: "motion",
	model.DeviceTypeDoor:   "door",
	model.DeviceTypeLeak:   "moisture",
	model.DeviceTypeFire:   "smoke",
}

type BinarySensorPresenter struct{}

func (p *BinarySensorPresenter) Applies(d *model.DeviceRecord) bool {
	return d.Type.IsBinarySensor()
}

func (p *BinarySensorPresenter) Describe(d *model.DeviceRecord) Entity {
	meta := p.GetMetadata()
	meta.DeviceClass = binaryDeviceClasses[d.Type]
	return Entity{
		UniqueID: "ajax_" + string(d.Type) + "_" + d.ID,
		Name:     nameOr(d, "Ajax "+string(d.Type)),
		DeviceID: d.ID,
		Kind:     KindBinarySensor,
		Metadata: meta,
	}
}

func (p *BinarySensorPresenter) State(d *model.DeviceRecord) interface{} {
	on, known := BinaryState(d)
	if !known {
		return nil
	}
	return on
}

func (p *BinarySensorPresenter) Attributes(d *model.DeviceRecord) map[string]interface{} {
	return AuxiliaryAttributes(d)
}

func (p *BinarySensorPresenter) GetMetadata() Metadata {
	return Metadata{Platform: PlatformBinarySensor}
}
