package relay

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay directions and failure stages used as metric label values.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"

	StageInputCount     = "input_count"
	StageInputResolve   = "input_resolve"
	StageInputValidate  = "input_validate"
	StageInputWrite     = "input_write"
	StageOutputCount    = "output_count"
	StageOutputResolve  = "output_resolve"
	StageOutputCheck    = "output_check"
	StageOutputValidate = "output_validate"
	StageOutputRead     = "output_read"
	StageOutputPublish  = "output_publish"
)

// Metrics tracks relay loop statistics. A nil *Metrics is valid and records
// nothing, so callers never need to guard their observations.
type Metrics struct {
	cyclesTotal   prometheus.Counter
	relayedTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

// NewMetrics creates the relay collectors. Pass nil to use the default
// Prometheus registerer. Call Register before use.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer: registerer,
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "busbridge",
			Subsystem: "relay",
			Name:      "cycles_total",
			Help:      "Total number of completed relay cycles",
		}),
		relayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "busbridge",
			Subsystem: "relay",
			Name:      "messages_relayed_total",
			Help:      "Total number of payloads moved across the bus/engine boundary",
		}, []string{"direction"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "busbridge",
			Subsystem: "relay",
			Name:      "errors_total",
			Help:      "Total number of isolated relay failures by stage",
		}, []string{"stage"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "busbridge",
			Subsystem: "relay",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time spent in one relay cycle before the cadence sleep",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
	}
}

// Register attaches the collectors to the configured registerer. Safe to call
// more than once.
func (m *Metrics) Register() error {
	if m == nil || m.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		m.cyclesTotal, m.relayedTotal, m.errorsTotal, m.cycleDuration,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// Relayed counts one successfully moved payload.
func (m *Metrics) Relayed(direction string) {
	if m == nil {
		return
	}
	m.relayedTotal.WithLabelValues(direction).Inc()
}

// RelayError counts one isolated relay failure.
func (m *Metrics) RelayError(stage string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(stage).Inc()
}

// CycleObserved records one finished cycle and its duration.
func (m *Metrics) CycleObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
	m.cycleDuration.Observe(d.Seconds())
}
