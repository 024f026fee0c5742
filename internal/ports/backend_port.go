package ports

import (
	"ajax-cloud-bridge/internal/domain/model"
	"context"
)

// BackendPort is the cloud backend contract. Implementations never retry.
type BackendPort interface {
	Authenticate(ctx context.Context, email string) (*model.AuthResult, error)
	CheckStatus(ctx context.Context) (*model.AuthResult, error)
	GetDevices(ctx context.Context) (*model.Snapshot, error)
	GetDeviceState(ctx context.Context, id string) (*model.DeviceRecord, error)
	ArmAlarm(ctx context.Context, hubID string, mode model.AlarmMode) (map[string]interface{}, error)
	DisarmAlarm(ctx context.Context, hubID string) (map[string]interface{}, error)
}

// BackendFactory builds a client bound to one backend URL and token.
type BackendFactory func(backendURL, token string) BackendPort
