package gosinter

import (
	"fmt"
	"log/slog"

	"github.com/phil-mansfield/gosinter/compaction"
	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/io"
	"github.com/phil-mansfield/gosinter/material"
	"github.com/phil-mansfield/gosinter/particle"
	"github.com/phil-mansfield/gosinter/remesh"
	"github.com/phil-mansfield/gosinter/solver"
)

// Build turns the strategy selections of cfg into a pipeline over graph.
// Compaction steps are published to h as hub.StateReported. The returned
// pipeline has no storage.
func Build(
	cfg *io.Config, graph material.Graph, h *hub.Hub, logger *slog.Logger,
) (*Pipeline, error) {
	if h == nil {
		h = hub.New(logger)
	}

	compactor, err := buildCompactor(cfg.Compaction, h)
	if err != nil {
		return nil, fmt.Errorf("%w: compaction: %w", io.ErrConfig, err)
	}

	fs := freeSurface(cfg.FreeSurface)
	stageRemeshers, err := buildRemeshers(cfg.Remeshing.Remeshers, fs)
	if err != nil {
		return nil, fmt.Errorf("%w: remeshing: %w", io.ErrConfig, err)
	}
	solverRemeshers, err := buildRemeshers(cfg.Solver.Remeshers, fs)
	if err != nil {
		return nil, fmt.Errorf("%w: solver: %w", io.ErrConfig, err)
	}

	routines := solver.DefaultRoutines().
		WithRemeshers(solverRemeshers...).
		WithMaxStepCount(cfg.Solver.MaxStepCount)
	switch cfg.Solver.StepWidth {
	case io.FixedStepWidth:
		routines = routines.WithStepWidthController(
			solver.Fixed{Width: cfg.Solver.FixedStepWidth},
		)
	default:
		routines = routines.WithStepWidthController(
			solver.MaximumDisplacementAngle{Angle: cfg.Solver.DisplacementAngle},
		)
	}
	if cfg.Solver.PoreClosedLimit > 0 {
		routines = routines.WithBreakConditions(
			solver.PoreClosed{RelativeLimit: cfg.Solver.PoreClosedLimit},
		)
	}
	if err := routines.Validate(); err != nil {
		return nil, fmt.Errorf("%w: solver: %w", io.ErrConfig, err)
	}

	sol := solver.New(routines, cfg.Solver.RemeshingEverySteps, logger)
	step := NewSinteringStep(
		cfg.Process.Duration, cfg.Process.Temperature, sol, graph,
		cfg.Process.GasConstant,
	)
	step.VacancyConcentration = cfg.Process.VacancyConcentration
	step.Tolerant = cfg.Output.Tolerant()
	if logger != nil {
		step.Logger = logger
	}

	p := &Pipeline{
		Hub:           h,
		Logger:        logger,
		Compaction:    CompactionStage{Compactor: compactor},
		Preconditions: []Precondition{ValidTopology{}},
		Sintering:     step,
	}
	if n := cfg.Precondition.MinimumContacts; n > 0 {
		p.Preconditions = append(p.Preconditions, MinimumContacts{Minimum: n})
	}
	if len(stageRemeshers) > 0 {
		p.Remeshing = RemeshStage{Remeshers: stageRemeshers}
	}
	return p, nil
}

func buildCompactor(con io.CompactionConfig, h *hub.Hub) (Compactor, error) {
	params := compaction.Params{
		StepDistance:             con.StepDistance,
		MinimumIntrusion:         con.MinimumIntrusion,
		MinimumRelativeIntrusion: con.MinimumRelativeIntrusion,
		MaxStepCount:             con.MaxStepCount,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	report := func(s *particle.SystemState) error {
		return h.Publish(hub.Event{
			Kind: hub.StateReported, Label: "compaction", New: s,
		})
	}

	switch con.Strategy {
	case io.FocalCompaction:
		return &compaction.Focal{
			Params: params,
			Focus:  geom.Vec{con.FocusX, con.FocusY},
			Report: report,
		}, nil
	case io.OneByOneCompaction:
		return &compaction.OneByOne{Params: params, Report: report}, nil
	}
	return nil, fmt.Errorf("unknown compaction strategy '%s'", con.Strategy)
}

func freeSurface(con io.FreeSurfaceConfig) remesh.FreeSurface {
	return remesh.FreeSurface{
		DeletionLimit:       con.DeletionLimit,
		AdditionLimit:       con.AdditionLimit,
		MinWidthFactor:      con.MinWidthFactor,
		MaxWidthFactor:      con.MaxWidthFactor,
		TwinPointLimit:      con.TwinPointLimit,
		NeckProtectionCount: con.NeckProtectionCount,
		TargetNodeCount:     con.TargetNodeCount,
	}
}

func buildRemeshers(names []string, fs remesh.FreeSurface) (remesh.Chain, error) {
	var chain remesh.Chain
	for _, name := range names {
		switch name {
		case io.NeckNeighborhoodRemesher:
			chain = append(chain, remesh.NeckNeighborhood{})
		case io.LastSurfaceNodeRemesher:
			chain = append(chain, remesh.LastSurfaceNode{})
		case io.FreeSurfaceRemesher:
			if err := fs.Validate(); err != nil {
				return nil, err
			}
			chain = append(chain, fs)
		case io.NoRemesher:
		default:
			return nil, fmt.Errorf("unknown remesher '%s'", name)
		}
	}
	return chain, nil
}
