package service

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/metrics"
	"ajax-cloud-bridge/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the fixed period between scheduled refreshes.
const DefaultInterval = 30 * time.Second

// DefaultRefreshTimeout bounds one shared refresh, matching the backend
// client's per-call timeout.
const DefaultRefreshTimeout = 30 * time.Second

const refreshKey = "devices"

// refreshState is replaced as a whole so the snapshot and the failure
// record are always observed together.
type refreshState struct {
	snapshot    *model.Snapshot
	lastErr     error
	lastSuccess time.Time
	lastAttempt time.Time
}

// Coordinator owns the single cached snapshot of backend state.
type Coordinator struct {
	backend  ports.BackendPort
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	group singleflight.Group
	state atomic.Pointer[refreshState]

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(ports.SnapshotUpdate)
}

type CoordinatorOption func(*Coordinator)

func WithInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithRefreshTimeout sets the deadline of a shared refresh.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l.With().Str("component", "coordinator").Logger() }
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

func NewCoordinator(backend ports.BackendPort, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		backend:   backend,
		interval:  DefaultInterval,
		timeout:   DefaultRefreshTimeout,
		logger:    zerolog.Nop(),
		listeners: make(map[int]func(ports.SnapshotUpdate)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(&refreshState{})
	return c
}

// Snapshot returns the snapshot currently served, or nil before the first
// successful refresh. The returned value must not be modified.
func (c *Coordinator) Snapshot() *model.Snapshot {
	return c.state.Load().snapshot
}

// LastError returns the error of the most recent refresh, nil if it succeeded.
func (c *Coordinator) LastError() error {
	return c.state.Load().lastErr
}

// LastAttempt returns when the most recent refresh finished.
func (c *Coordinator) LastAttempt() time.Time {
	return c.state.Load().lastAttempt
}

// LastSuccess returns when a snapshot was last stored, zero if never.
func (c *Coordinator) LastSuccess() time.Time {
	return c.state.Load().lastSuccess
}

// Healthy reports whether a snapshot is held and the last refresh succeeded.
func (c *Coordinator) Healthy() bool {
	s := c.state.Load()
	return s.snapshot != nil && s.lastErr == nil
}

// FirstRefresh performs the setup-time refresh. There is no snapshot to fall
// back on yet, so its failure is returned to the caller as fatal.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	return nil
}

// Refresh fetches a new snapshot. Calls made while a refresh is in flight
// join that refresh instead of issuing another backend call. On failure the
// previous snapshot keeps being served and the error is recorded.
//
// The shared refresh is detached from the cancellation of whichever caller
// started it and bounded by the refresh timeout instead. A caller whose ctx
// ends stops waiting and gets ctx.Err(); the refresh carries on for the
// others and its outcome is recorded as usual.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return nil, c.refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Msg("refresh coalesced with in-flight request")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context) error {
	start := time.Now()
	snap, err := c.backend.GetDevices(ctx)
	if err == nil {
		snap = c.normalize(snap)
	}

	prev := c.state.Load()
	now := time.Now()
	next := &refreshState{snapshot: prev.snapshot, lastErr: err, lastSuccess: prev.lastSuccess, lastAttempt: now}
	if err == nil {
		next.snapshot = snap
		next.lastSuccess = now
	}
	c.state.Store(next)

	c.metrics.ObserveRefresh(time.Since(start), snap, err)
	if err != nil {
		c.logger.Warn().Err(err).Bool("stale", prev.snapshot != nil).Msg("refresh failed, keeping previous snapshot")
	} else {
		c.logger.Debug().Int("devices", len(snap.Devices)).Dur("elapsed", time.Since(start)).Msg("snapshot refreshed")
	}

	c.notify(ports.SnapshotUpdate{Snapshot: next.snapshot, Err: err})
	return err
}

// normalize drops records without an id and keeps the first record of any
// duplicated id so lookups match at most one device.
func (c *Coordinator) normalize(snap *model.Snapshot) *model.Snapshot {
	out := &model.Snapshot{
		Devices:   make([]model.DeviceRecord, 0, len(snap.Devices)),
		FetchedAt: snap.FetchedAt,
	}
	if out.FetchedAt.IsZero() {
		out.FetchedAt = time.Now()
	}
	seen := make(map[string]struct{}, len(snap.Devices))
	for _, d := range snap.Devices {
		if d.ID == "" {
			c.logger.Warn().Str("type", string(d.Type)).Msg("dropping device without id")
			continue
		}
		if _, dup := seen[d.ID]; dup {
			c.logger.Warn().Str("device_id", d.ID).Msg("dropping duplicate device id")
			continue
		}
		seen[d.ID] = struct{}{}
		out.Devices = append(out.Devices, d)
	}
	return out
}

// Run refreshes on every tick until ctx is cancelled. Failures are only
// recorded; the next tick retries.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Msg("refresh loop started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("refresh loop stopped")
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Subscribe registers fn to be called after every refresh attempt.
// The returned func removes the subscription.
func (c *Coordinator) Subscribe(fn func(ports.SnapshotUpdate)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify(u ports.SnapshotUpdate) {
	c.mu.Lock()
	fns := make([]func(ports.SnapshotUpdate), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// DeviceState asks the backend for one device directly, bypassing the cache.
func (c *Coordinator) DeviceState(ctx context.Context, id string) (*model.DeviceRecord, error) {
	return c.backend.GetDeviceState(ctx, id)
}

// Arm sends an arm command to a hub and then requests a refresh so the
// new mode shows up quickly. The command itself is never retried.
func (c *Coordinator) Arm(ctx context.Context, hubID string, mode model.AlarmMode) error {
	if !mode.IsArmed() {
		return fmt.Errorf("%w: %q", model.ErrInvalidMode, mode)
	}
	if err := c.checkHub(hubID); err != nil {
		return err
	}
	_, err := c.backend.ArmAlarm(ctx, hubID, mode)
	c.metrics.ObserveCommand("arm", err)
	if err != nil {
		return fmt.Errorf("arming hub %s: %w", hubID, err)
	}
	c.logger.Info().Str("hub_id", hubID).Str("mode", string(mode)).Msg("hub armed")
	c.followUp(ctx)
	return nil
}

// Disarm sends a disarm command to a hub, then requests a refresh.
func (c *Coordinator) Disarm(ctx context.Context, hubID string) error {
	if err := c.checkHub(hubID); err != nil {
		return err
	}
	_, err := c.backend.DisarmAlarm(ctx, hubID)
	c.metrics.ObserveCommand("disarm", err)
	if err != nil {
		return fmt.Errorf("disarming hub %s: %w", hubID, err)
	}
	c.logger.Info().Str("hub_id", hubID).Msg("hub disarmed")
	c.followUp(ctx)
	return nil
}

// checkHub rejects devices the snapshot knows to be something other than a
// hub. Unknown ids are passed through; the backend is authoritative.
func (c *Coordinator) checkHub(hubID string) error {
	if d := c.Snapshot().Find(hubID); d != nil && d.Type != model.DeviceTypeHub {
		return fmt.Errorf("%w: %s is a %s", model.ErrNotHub, hubID, d.Type)
	}
	return nil
}

func (c *Coordinator) followUp(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn().Err(err).Msg("follow-up refresh after command failed")
	}
}
