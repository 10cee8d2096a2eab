package gosinter

import (
	"io"
	"log/slog"
	"time"

	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/particle"
	"github.com/phil-mansfield/gosinter/remesh"
)

// Stage is one transformation of the particle system.
type Stage interface {
	Name() string
	Apply(s *particle.SystemState) (*particle.SystemState, error)
}

// Compactor moves particles into contact.
type Compactor interface {
	Solve(s *particle.SystemState) (*particle.SystemState, error)
}

// CompactionStage runs a single compaction strategy.
type CompactionStage struct {
	Compactor Compactor
}

func (CompactionStage) Name() string { return "compaction" }

func (c CompactionStage) Apply(s *particle.SystemState) (*particle.SystemState, error) {
	return c.Compactor.Solve(s)
}

// RemeshStage folds the state through a chain of remeshers.
type RemeshStage struct {
	Remeshers remesh.Chain
}

func (RemeshStage) Name() string { return "remeshing" }

func (r RemeshStage) Apply(s *particle.SystemState) (*particle.SystemState, error) {
	return r.Remeshers.RemeshSystem(s)
}

// Runner applies stages in sequence and publishes a hub.StageCompleted
// checkpoint after each one.
type Runner struct {
	Hub    *hub.Hub
	Logger *slog.Logger
}

// NewRunner creates a runner. Nil arguments are replaced by an empty hub and
// a discarding logger.
func NewRunner(h *hub.Hub, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h == nil {
		h = hub.New(logger)
	}
	return &Runner{Hub: h, Logger: logger}
}

// Run applies stage to s. Stage failures are returned as *StageError.
func (r *Runner) Run(s *particle.SystemState, stage Stage) (*particle.SystemState, error) {
	name := stage.Name()
	r.Logger.Info("stage started", "stage", name,
		"particles", s.ParticleCount(), "contacts", s.GrainBoundaryPairs())
	start := time.Now()

	out, err := stage.Apply(s)
	if err != nil {
		r.Logger.Error("stage failed", "stage", name, "error", err)
		return nil, &StageError{Stage: name, Err: err}
	}

	r.Logger.Info("stage finished", "stage", name,
		"elapsed", time.Since(start), "time", out.Time(),
		"contacts", out.GrainBoundaryPairs())

	err = r.Hub.Publish(hub.Event{
		Kind: hub.StageCompleted, Label: name, Old: s, New: out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
