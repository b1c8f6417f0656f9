package ffi

import (
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// Metrics holds the Prometheus collectors of the boundary.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the boundary collectors and registers them with reg.
// Collectors that reg already holds are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crfsuite_ffi_calls_total",
		Help: "Boundary operations by name and resulting error code.",
	}, []string{"op", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crfsuite_ffi_call_duration_seconds",
		Help:    "Duration of boundary operations.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"op"})

	m := &Metrics{calls: calls, duration: duration}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(calls); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !stdErrors.As(err, &are) {
			return nil, err
		}
		m.calls = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !stdErrors.As(err, &are) {
			return nil, err
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

func (m *Metrics) observe(op string, code entities.ErrorCode, d time.Duration) {
	m.calls.WithLabelValues(op, strconv.FormatUint(uint64(code), 10)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}
