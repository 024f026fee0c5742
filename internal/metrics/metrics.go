// Package metrics holds the Prometheus instruments of the bridge.
//
// All methods are safe on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"ajax-cloud-bridge/internal/domain/model"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "ajax_"

	resultSuccess         = "success"
	resultTimeout         = "timeout"
	resultConnection      = "connection"
	resultRequestFailed   = "request_failed"
	resultInvalidResponse = "invalid_response"
	resultError           = "error"
)

type Metrics struct {
	backendRequests *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshLatency  prometheus.Histogram
	devices         prometheus.Gauge
	lastSuccess     prometheus.Gauge
	commands        *prometheus.CounterVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		backendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "backend_requests_total",
				Help: "Total backend requests by operation and result",
			},
			[]string{"operation", "result"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refreshes_total",
				Help: "Total snapshot refresh attempts by result",
			},
			[]string{"result"},
		),
		refreshLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "refresh_latency_seconds",
				Help:    "Snapshot refresh latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "devices",
				Help: "Number of devices in the served snapshot",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_refresh_success_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Total alarm commands by command and result",
			},
			[]string{"command", "result"},
		),
	}
	reg.MustRegister(m.backendRequests, m.refreshes, m.refreshLatency, m.devices, m.lastSuccess, m.commands)
	return m
}

func (m *Metrics) ObserveBackendRequest(operation string, err error) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(operation, Result(err)).Inc()
}

func (m *Metrics) ObserveRefresh(elapsed time.Duration, snapshot *model.Snapshot, err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(Result(err)).Inc()
	m.refreshLatency.Observe(elapsed.Seconds())
	if err == nil && snapshot != nil {
		m.devices.Set(float64(len(snapshot.Devices)))
		m.lastSuccess.Set(float64(snapshot.FetchedAt.Unix()))
	}
}

func (m *Metrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, Result(err)).Inc()
}

// Result maps an error to its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, model.ErrTimeout):
		return resultTimeout
	case errors.Is(err, model.ErrConnection):
		return resultConnection
	case errors.Is(err, model.ErrRequestFailed):
		return resultRequestFailed
	case errors.Is(err, model.ErrInvalidResponse):
		return resultInvalidResponse
	default:
		return resultError
	}
}
