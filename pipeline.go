/*package gosinter runs multi-stage sintering simulations of packed particle
systems: compaction, precondition checks, optional remeshing and the
sintering solution, with checkpoints published to observers along the way.
*/
package gosinter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/particle"
)

// Pipeline is a complete simulation run.
type Pipeline struct {
	Hub    *hub.Hub
	Logger *slog.Logger

	Compaction    Stage // may be nil
	Preconditions []Precondition
	Remeshing     Stage // may be nil
	Sintering     *SinteringStep

	// Storage is released exactly once when Run returns, whatever stage
	// ended the run.
	Storage Storage
}

// Run drives initial through every stage. The hub receives the checkpoints
// "initial", then one per completed stage.
func (p *Pipeline) Run(initial *particle.SystemState) (final *particle.SystemState, err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := p.Hub
	if h == nil {
		h = hub.New(logger)
	}

	if p.Storage != nil {
		storage := closeOnce(p.Storage)
		if p.Sintering != nil {
			p.Sintering.UseStorage(storage)
		}
		defer func() {
			if cerr := storage.Close(); cerr != nil && err == nil {
				final, err = nil, fmt.Errorf("closing storage: %w", cerr)
			}
		}()
	}
	if p.Sintering == nil {
		return nil, fmt.Errorf("pipeline has no sintering step")
	}
	p.Sintering.UseHub(h)

	err = h.Publish(hub.Event{Kind: hub.StageCompleted, Label: "initial", New: initial})
	if err != nil {
		return nil, err
	}

	runner := NewRunner(h, logger)
	s := initial
	if p.Compaction != nil {
		if s, err = runner.Run(s, p.Compaction); err != nil {
			return nil, err
		}
	}

	if err = Validate(s, p.Preconditions...); err != nil {
		logger.Error("precondition failed", "error", err)
		return nil, err
	}

	if p.Remeshing != nil {
		if s, err = runner.Run(s, p.Remeshing); err != nil {
			return nil, err
		}
	}

	if s, err = runner.Run(s, p.Sintering); err != nil {
		return nil, err
	}
	logger.Info("pipeline finished", "time", s.Time(),
		"contacts", s.GrainBoundaryPairs())
	return s, nil
}
