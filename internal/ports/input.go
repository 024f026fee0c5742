package ports

import (
	"ajax-cloud-bridge/internal/domain/model"
	"context"
	"time"
)

// SnapshotUpdate is delivered to subscribers after every refresh attempt.
// Snapshot is the snapshot being served afterwards; Err is nil on success.
type SnapshotUpdate struct {
	Snapshot *model.Snapshot
	Err      error
}

// CoordinatorPort is what the host-facing adapters (HTTP, MQTT) consume.
type CoordinatorPort interface {
	Snapshot() *model.Snapshot
	LastError() error
	LastSuccess() time.Time
	Healthy() bool
	Refresh(ctx context.Context) error
	DeviceState(ctx context.Context, id string) (*model.DeviceRecord, error)
	Arm(ctx context.Context, hubID string, mode model.AlarmMode) error
	Disarm(ctx context.Context, hubID string) error
	Subscribe(fn func(SnapshotUpdate)) func()
}
