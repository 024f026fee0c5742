package service

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/ports"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Authenticate(ctx context.Context, email string) (*model.AuthResult, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*model.AuthResult)
	return res, args.Error(1)
}

func (m *MockBackend) CheckStatus(ctx context.Context) (*model.AuthResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*model.AuthResult)
	return res, args.Error(1)
}

func (m *MockBackend) GetDevices(ctx context.Context) (*model.Snapshot, error) {
	args := m.Called(ctx)
	if next, ok := args.Get(0).(func() *model.Snapshot); ok {
		return next(), args.Error(1)
	}
	snap, _ := args.Get(0).(*model.Snapshot)
	return snap, args.Error(1)
}

func (m *MockBackend) GetDeviceState(ctx context.Context, id string) (*model.DeviceRecord, error) {
	args := m.Called(ctx, id)
	dev, _ := args.Get(0).(*model.DeviceRecord)
	return dev, args.Error(1)
}

func (m *MockBackend) ArmAlarm(ctx context.Context, hubID string, mode model.AlarmMode) (map[string]interface{}, error) {
	args := m.Called(ctx, hubID, mode)
	ack, _ := args.Get(0).(map[string]interface{})
	return ack, args.Error(1)
}

func (m *MockBackend) DisarmAlarm(ctx context.Context, hubID string) (map[string]interface{}, error) {
	args := m.Called(ctx, hubID)
	ack, _ := args.Get(0).(map[string]interface{})
	return ack, args.Error(1)
}

type MockCredentialsRepo struct {
	mock.Mock
}

func (m *MockCredentialsRepo) Get(ctx context.Context) (*model.Credentials, error) {
	args := m.Called(ctx)
	creds, _ := args.Get(0).(*model.Credentials)
	return creds, args.Error(1)
}

func (m *MockCredentialsRepo) Save(ctx context.Context, creds *model.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

// recordingFactory hands out the same backend and remembers what it was built with.
type recordingFactory struct {
	mu      sync.Mutex
	backend ports.BackendPort
	tokens  []string
	urls    []string
}

func (f *recordingFactory) build(backendURL, token string) ports.BackendPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, backendURL)
	f.tokens = append(f.tokens, token)
	return f.backend
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
