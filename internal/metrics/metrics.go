// Package metrics exports send session statistics to Prometheus.
//
// All methods are safe to call on a nil *Metrics, which collects nothing.
package metrics

import (
	"errors"
	"net/http"

	"github.com/boob-sbcm/rsynk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rsynk"

// Session results, used as the "result" label.
const (
	ResultOK                 = "ok"
	ResultProtocolVersion    = "unsupported_protocol_version"
	ResultUnsupportedFeature = "unsupported_feature"
	ResultArgumentParse      = "argument_parse"
	ResultStreamFailure      = "stream_failure"
	ResultOther              = "other"
)

type Metrics struct {
	registry *prometheus.Registry

	sessions       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	entries        prometheus.Counter
	bytes          *prometheus.CounterVec
}

// New registers the session metrics with a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Send sessions by result",
		}, []string{"result"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Send sessions currently in progress",
		}),
		entries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_list_entries_total",
			Help:      "File list entries sent to clients",
		}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Protocol bytes by direction (read, written)",
		}, []string{"direction"}),
	}
}

// Registry returns the registry holding the session metrics, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Classify maps a session error to its "result" label value.
func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, rsynk.ErrUnsupportedProtocolVersion):
		return ResultProtocolVersion
	case errors.Is(err, rsynk.ErrUnsupportedFeature):
		return ResultUnsupportedFeature
	case errors.Is(err, rsynk.ErrArgumentParse):
		return ResultArgumentParse
	case errors.Is(err, rsynk.ErrStreamFailure):
		return ResultStreamFailure
	}
	return ResultOther
}

// SessionStarted must be paired with a call to SessionFinished.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionFinished(err error) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessions.WithLabelValues(Classify(err)).Inc()
}

// RecordTransfer adds the traffic and file list size of one session.
func (m *Metrics) RecordTransfer(read, written, entries int64) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues("read").Add(float64(read))
	m.bytes.WithLabelValues("written").Add(float64(written))
	m.entries.Add(float64(entries))
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// SessionsCounter returns the session counter for result, for tests.
func (m *Metrics) SessionsCounter(result string) prometheus.Counter {
	return m.sessions.WithLabelValues(result)
}
