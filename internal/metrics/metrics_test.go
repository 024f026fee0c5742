package metrics

import (
	"ajax-cloud-bridge/internal/domain/model"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "timeout", Result(fmt.Errorf("%w: deadline", model.ErrTimeout)))
	assert.Equal(t, "connection", Result(fmt.Errorf("%w: refused", model.ErrConnection)))
	assert.Equal(t, "request_failed", Result(&model.RequestFailedError{StatusCode: 500}))
	assert.Equal(t, "invalid_response", Result(model.ErrInvalidResponse))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestObserveRefresh(t *testing.T) {
	m := New(prometheus.NewRegistry())
	snap := &model.Snapshot{
		Devices:   []model.DeviceRecord{{ID: "1"}, {ID: "2"}},
		FetchedAt: time.Unix(1700000000, 0),
	}

	m.ObserveRefresh(time.Second, snap, nil)
	m.ObserveRefresh(time.Second, snap, &model.RequestFailedError{StatusCode: 500})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("request_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.devices))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastSuccess))
}

func TestObserveCommandAndRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveCommand("arm", nil)
	m.ObserveBackendRequest("get_devices", fmt.Errorf("%w: x", model.ErrTimeout))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("arm", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("get_devices", "timeout")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackendRequest("x", nil)
		m.ObserveRefresh(0, nil, nil)
		m.ObserveCommand("arm", nil)
	})
}
