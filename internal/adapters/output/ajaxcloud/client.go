package ajaxcloud

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/metrics"
	"ajax-cloud-bridge/internal/ports"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	apiPrefix = "/api/v1"

	// DefaultTimeout bounds every backend call, including reading the body.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
	maxErrorBody     = 256
)

// Client talks to the cloud backend REST API. It holds no mutable state and
// performs exactly one HTTP exchange per call.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l.With().Str("component", "ajaxcloud").Logger() }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(backendURL, token string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSuffix(backendURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns a BackendFactory building clients that share opts.
func Factory(opts ...Option) ports.BackendFactory {
	return func(backendURL, token string) ports.BackendPort {
		return NewClient(backendURL, token, opts...)
	}
}

func (c *Client) Authenticate(ctx context.Context, email string) (*model.AuthResult, error) {
	var res model.AuthResult
	payload := map[string]interface{}{"email": email}
	if err := c.do(ctx, "authenticate", http.MethodPost, "/auth/register", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CheckStatus(ctx context.Context) (*model.AuthResult, error) {
	var res model.AuthResult
	if err := c.do(ctx, "check_status", http.MethodGet, "/auth/status", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetDevices decodes every record on its own: a record that is not an
// object is skipped and fields of the wrong type are dropped, both logged,
// so one malformed device does not cost the whole snapshot.
func (c *Client) GetDevices(ctx context.Context) (*model.Snapshot, error) {
	var body struct {
		Devices []json.RawMessage `json:"devices"`
	}
	if err := c.do(ctx, "get_devices", http.MethodGet, "/devices", nil, &body); err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		Devices:   make([]model.DeviceRecord, 0, len(body.Devices)),
		FetchedAt: time.Now(),
	}
	for i, raw := range body.Devices {
		var dev model.DeviceRecord
		if err := json.Unmarshal(raw, &dev); err != nil {
			c.logger.Warn().Err(err).Int("index", i).Msg("skipping malformed device record")
			continue
		}
		if bad := dev.InvalidFields(); len(bad) > 0 {
			c.logger.Warn().Str("device_id", dev.ID).Strs("fields", bad).Msg("dropped device fields with unexpected types")
		}
		snap.Devices = append(snap.Devices, dev)
	}
	return snap, nil
}

func (c *Client) GetDeviceState(ctx context.Context, id string) (*model.DeviceRecord, error) {
	var dev model.DeviceRecord
	if err := c.do(ctx, "get_device_state", http.MethodGet, "/devices/"+url.PathEscape(id), nil, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

func (c *Client) ArmAlarm(ctx context.Context, hubID string, mode model.AlarmMode) (map[string]interface{}, error) {
	ack := map[string]interface{}{}
	payload := map[string]interface{}{"mode": string(mode)}
	if err := c.do(ctx, "arm_alarm", http.MethodPost, "/hubs/"+url.PathEscape(hubID)+"/arm", payload, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}

func (c *Client) DisarmAlarm(ctx context.Context, hubID string) (map[string]interface{}, error) {
	ack := map[string]interface{}{}
	if err := c.do(ctx, "disarm_alarm", http.MethodPost, "/hubs/"+url.PathEscape(hubID)+"/disarm", nil, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}

// Request issues an arbitrary call under /api/v1 and returns the decoded body.
// An empty 2xx body yields an empty map.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	var body interface{}
	if payload != nil {
		body = payload
	}
	if err := c.do(ctx, "request", method, endpoint, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, payload, out interface{}) (err error) {
	defer func() {
		c.metrics.ObserveBackendRequest(operation, err)
		if err != nil {
			c.logger.Error().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("error communicating with backend")
		}
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s %s payload: %w", method, endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+apiPrefix+endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", model.ErrConnection, method, endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classify(method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.RequestFailedError{
			Method:     method,
			Path:       apiPrefix + endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", model.ErrInvalidResponse, method, endpoint, err)
	}
	return nil
}

// classify folds a transport failure into ErrTimeout or ErrConnection,
// keeping the original error in the chain.
func classify(method, endpoint string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s: %w", model.ErrTimeout, method, endpoint, err)
	}
	return fmt.Errorf("%w: %s %s: %w", model.ErrConnection, method, endpoint, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
