package gosinter

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/material"
	"github.com/phil-mansfield/gosinter/particle"
	"github.com/phil-mansfield/gosinter/solver"
)

// Storage persists states written during sintering.
type Storage interface {
	Store(s *particle.SystemState) error
	Close() error
}

// Solver advances a particle system through time.
type Solver interface {
	Solve(
		s *particle.SystemState, duration float64, env solver.Environment,
		h *hub.Hub,
	) (*particle.SystemState, error)
}

// onceStorage closes the wrapped storage at most once and remembers the
// result.
type onceStorage struct {
	Storage
	once sync.Once
	err  error
}

func (s *onceStorage) Close() error {
	s.once.Do(func() { s.err = s.Storage.Close() })
	return s.err
}

func closeOnce(s Storage) *onceStorage {
	if o, ok := s.(*onceStorage); ok {
		return o
	}
	return &onceStorage{Storage: s}
}

// SinteringStep runs the physical solver on a compacted system, attaching
// persistence to the solver's lifecycle events for the duration of the
// solution.
type SinteringStep struct {
	Duration             float64 // s
	Temperature          float64 // K
	GasConstant          float64 // J/(mol K)
	VacancyConcentration float64
	Solver               Solver
	Materials            material.Graph
	Logger               *slog.Logger

	// Tolerant makes storage failures warnings instead of errors.
	Tolerant bool

	storage *onceStorage
	hub     *hub.Hub
}

// NewSinteringStep creates the orchestrator.
func NewSinteringStep(
	duration, temperature float64, sol Solver, materials material.Graph,
	gasConstant float64,
) *SinteringStep {
	return &SinteringStep{
		Duration: duration, Temperature: temperature, GasConstant: gasConstant,
		Solver: sol, Materials: materials,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// UseStorage sets the storage written to during Solve. It is closed exactly
// once when Solve returns.
func (st *SinteringStep) UseStorage(s Storage) {
	st.storage = closeOnce(s)
}

// UseHub sets the hub the solver publishes to.
func (st *SinteringStep) UseHub(h *hub.Hub) {
	st.hub = h
}

func (st *SinteringStep) Name() string { return "sintering" }

func (st *SinteringStep) Apply(s *particle.SystemState) (*particle.SystemState, error) {
	return st.Solve(s)
}

// Solve runs the solver. Every session start and every step is stored while
// the solver runs; the storage is closed on every exit path.
func (st *SinteringStep) Solve(s *particle.SystemState) (out *particle.SystemState, err error) {
	h := st.hub
	if h == nil {
		h = hub.New(st.Logger)
	}

	if st.storage != nil {
		storage := st.storage
		defer func() {
			if cerr := storage.Close(); cerr != nil && err == nil {
				out, err = nil, fmt.Errorf("closing storage: %w", cerr)
			}
		}()

		store := func(ev hub.Event) error { return storage.Store(ev.New) }
		subs := []*hub.Subscription{
			h.Subscribe(hub.SessionInitialized, store,
				hub.Named("storage"), hub.Policy(st.Tolerant)),
			h.Subscribe(hub.StepCalculated, store,
				hub.Named("storage"), hub.Policy(st.Tolerant)),
		}
		defer func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}()
	}

	st.Logger.Info("sintering", "duration", st.Duration,
		"temperature", st.Temperature, "particles", s.ParticleCount())

	env := solver.Environment{
		Temperature:          st.Temperature,
		GasConstant:          st.GasConstant,
		VacancyConcentration: st.VacancyConcentration,
		Materials:            st.Materials,
	}
	return st.Solver.Solve(s, st.Duration, env, h)
}
