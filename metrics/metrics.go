package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phil-mansfield/gosinter/hub"
)

// Metrics provides observability for a single pipeline run. Every run has
// its own registry so that runs never share counters.
type Metrics struct {
	Registry *prometheus.Registry

	// Completed pipeline stages by name
	Stages *prometheus.CounterVec

	// Intermediate states reported by stages, e.g. compaction steps
	Reports *prometheus.CounterVec

	// Solver sessions and accepted steps
	Sessions prometheus.Counter
	Steps    prometheus.Counter

	// Width of every accepted solver step in simulated seconds
	StepWidth prometheus.Histogram

	// State of the most recent event
	SimulatedTime      prometheus.Gauge
	GrainBoundaryPairs prometheus.Gauge
	Nodes              prometheus.Gauge

	mu   sync.Mutex
	subs []*hub.Subscription
}

// New creates a new Metrics instance with all metrics registered in a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		Stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gosinter_stages_completed_total",
			Help: "Total completed pipeline stages by name",
		}, []string{"stage"}),

		Reports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gosinter_states_reported_total",
			Help: "Total intermediate states reported by stage",
		}, []string{"stage"}),

		Sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "gosinter_solver_sessions_total",
			Help: "Total solver sessions started",
		}),

		Steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "gosinter_solver_steps_total",
			Help: "Total accepted solver steps",
		}),

		StepWidth: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosinter_solver_step_width_seconds",
			Help:    "Simulated time advanced by accepted solver steps",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 12),
		}),

		SimulatedTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gosinter_simulated_time_seconds",
			Help: "Simulated time of the latest observed state",
		}),

		GrainBoundaryPairs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gosinter_grain_boundary_pairs",
			Help: "Joined grain boundary node pairs of the latest observed state",
		}),

		Nodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gosinter_nodes",
			Help: "Contour nodes of the latest observed state",
		}),
	}
}

// Attach subscribes to every event kind. Options are applied to every
// subscription.
func (m *Metrics) Attach(h *hub.Hub, opts ...hub.Option) {
	opts = append([]hub.Option{hub.Named("metrics")}, opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	for kind := hub.Kind(0); kind < hub.EndKind; kind++ {
		m.subs = append(m.subs, h.Subscribe(kind, m.Observe, opts...))
	}
}

// Detach removes every subscription made by Attach.
func (m *Metrics) Detach() {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Observe records a single event.
func (m *Metrics) Observe(ev hub.Event) error {
	if m == nil {
		return nil
	}

	switch ev.Kind {
	case hub.StageCompleted:
		m.Stages.WithLabelValues(ev.Label).Inc()
	case hub.StateReported:
		m.Reports.WithLabelValues(ev.Label).Inc()
	case hub.SessionInitialized:
		m.Sessions.Inc()
	case hub.StepCalculated:
		m.Steps.Inc()
		if ev.Old != nil && ev.New != nil {
			m.StepWidth.Observe(ev.New.Time() - ev.Old.Time())
		}
	}

	if ev.New != nil {
		m.SimulatedTime.Set(ev.New.Time())
		m.GrainBoundaryPairs.Set(float64(ev.New.GrainBoundaryPairs()))
		m.Nodes.Set(float64(ev.New.NodeCount()))
	}
	return nil
}

// WriteFile writes every metric in the text exposition format.
func (m *Metrics) WriteFile(fname string) error {
	return prometheus.WriteToTextfile(fname, m.Registry)
}
