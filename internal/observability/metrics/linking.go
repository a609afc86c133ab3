// Package metrics defines the Prometheus collectors for the linking entry points.
// All methods are nil-safe so callers can run without metrics configured.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kyoronginus/accountlink/internal/domain/linking"
	obserrors "github.com/Kyoronginus/accountlink/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultBlocked = "blocked"
)

const namespace = "accountlink"

// Linking records decision outcomes, store mutations and entry point latency.
type Linking struct {
	decisions *prometheus.CounterVec
	mutations *prometheus.CounterVec
	swallowed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewLinking creates the collectors and registers them with reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func NewLinking(reg prometheus.Registerer) (*Linking, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Linking{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Linking decisions by entry point, action and reason.",
		}, []string{"entry", "action", "reason"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Account store mutations by operation and result.",
		}, []string{"op", "result"}),
		swallowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swallowed_errors_total",
			Help:      "Errors logged and suppressed by non-blocking entry points.",
		}, []string{"entry", "error_class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entry_duration_seconds",
			Help:      "Entry point latency by result.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"entry", "result"}),
	}
	var err error
	if m.decisions, err = register(reg, m.decisions); err != nil {
		return nil, err
	}
	if m.mutations, err = register(reg, m.mutations); err != nil {
		return nil, err
	}
	if m.swallowed, err = register(reg, m.swallowed); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveDecision counts one policy evaluation.
func (m *Linking) ObserveDecision(entry string, d linking.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(entry, string(d.Action), string(d.Reason)).Inc()
}

// ObserveMutation counts one store write attempt.
func (m *Linking) ObserveMutation(op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// ObserveSwallowed counts an error that was logged instead of returned.
func (m *Linking) ObserveSwallowed(entry string, err error) {
	if m == nil || err == nil {
		return
	}
	m.swallowed.WithLabelValues(entry, obserrors.Classify(err)).Inc()
}

// ObserveEntry records latency for one entry point invocation.
func (m *Linking) ObserveEntry(entry string, d time.Duration, result string) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(entry, result).Observe(d.Seconds())
}

// register returns the collector already registered under the same descriptor when
// there is one, so building the recorder twice against one registry shares series.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}
