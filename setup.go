package gosinter

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/io"
	"github.com/phil-mansfield/gosinter/material"
	"github.com/phil-mansfield/gosinter/particle"
)

// placement is a particle of the configuration together with the concrete
// material (inert variants included) it is made of.
type placement struct {
	name     string
	config   *io.ParticleConfig
	base     string
	concrete string
}

// placements lists the configured particles in assembly order: configured
// particles sorted by name, then the rows of the packing table.
func placements(cfg *io.Config) ([]placement, error) {
	var out []placement
	for _, name := range cfg.ParticleNames() {
		out = append(out, placement{name: name, config: cfg.Particle[name]})
	}
	for i := range cfg.Packed {
		out = append(out, placement{name: io.PackedName(i), config: &cfg.Packed[i]})
	}

	inert := map[int]bool{}
	for _, i := range cfg.Process.InertIndex {
		if i < 0 || i >= len(out) {
			return nil, fmt.Errorf("%w: inert-index %d given, but only %d "+
				"particles exist", io.ErrConfig, i, len(out))
		}
		inert[i] = true
	}

	mats := cfg.MaterialNames()
	for i := range out {
		pl := &out[i]
		pl.base = pl.config.Material
		if pl.base == "" {
			pl.base = mats[0]
		}
		pl.concrete = pl.base
		if pl.config.Inert || inert[i] {
			pl.concrete = material.InertName(pl.base)
		}
	}
	return out, nil
}

// Setup builds the material graph and the initial particle system described
// by cfg. The two are built concurrently. Every particle's material is
// checked to exist in the graph.
func Setup(cfg *io.Config) (material.Graph, *particle.SystemState, error) {
	pls, err := placements(cfg)
	if err != nil {
		return nil, nil, err
	}

	var (
		graph material.Graph
		state *particle.SystemState
		g     errgroup.Group
	)
	g.Go(func() error {
		var err error
		graph, err = buildGraph(cfg, pls)
		return err
	})
	g.Go(func() error {
		var err error
		state, err = assemble(cfg, pls)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, p := range state.Particles() {
		if _, err := graph.Get(p.MaterialID()); err != nil {
			return nil, nil, fmt.Errorf("%w: particle '%s': %w",
				io.ErrConfig, pls[i].name, err)
		}
	}
	return graph, state, nil
}

func materialID(cfg *io.Config, name string) uuid.UUID {
	if id, ok := cfg.MaterialID(name); ok && id != uuid.Nil {
		return id
	}
	return material.ID(name)
}

func buildGraph(cfg *io.Config, pls []placement) (material.Graph, error) {
	b := material.NewBuilder(material.Options{
		SplitGrainBoundaryEnergy: cfg.Process.SplitGrainBoundaryEnergy,
		InertDamping:             cfg.Process.InertDamping,
	})

	for _, name := range cfg.MaterialNames() {
		mat := cfg.Material[name]
		surface, err := material.NewInterfaceProperties(
			mat.SurfaceDiffusion, mat.SurfaceEnergy,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: material '%s': %w", io.ErrConfig, name, err)
		}
		err = b.AddMaterial(material.Definition{
			Name: name,
			ID:   mat.UUID(),
			Substance: material.SubstanceProperties{
				Density: mat.Density, MolarMass: mat.MolarMass,
			},
			Surface: surface,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", io.ErrConfig, err)
		}
	}

	for _, name := range cfg.GrainBoundaryNames() {
		gb := cfg.GrainBoundary[name]
		props, err := material.NewInterfaceProperties(gb.Diffusion, gb.Energy)
		if err != nil {
			return nil, fmt.Errorf("%w: grain boundary '%s': %w",
				io.ErrConfig, name, err)
		}
		if gb.IsDefault() {
			b.SetDefaultInterface(props)
		} else {
			a, c := gb.Pair()
			b.AddInterface(a, c, props)
		}
	}

	counts := map[string]int{}
	for _, pl := range pls {
		counts[pl.concrete]++
		if pl.concrete != pl.base {
			b.MarkInert(pl.base)
		}
	}

	graph, err := b.Build(material.UsageTopology(counts))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", io.ErrConfig, err)
	}
	return graph, nil
}

func assemble(cfg *io.Config, pls []placement) (*particle.SystemState, error) {
	assign := particle.Assignment{Overrides: map[int]uuid.UUID{}}
	if mats := cfg.MaterialNames(); len(mats) == 1 {
		assign.Default = materialID(cfg, mats[0])
	}

	specs := make([]particle.Spec, len(pls))
	for i, pl := range pls {
		p := pl.config
		specs[i] = particle.Spec{
			ID:   p.UUID(),
			Name: pl.name,
			Shape: particle.ShapeFunction{
				Center:     geom.Vec{p.X, p.Y},
				Rotation:   p.Rotation,
				Radius:     p.Radius,
				Ovality:    p.Ovality,
				PeakCount:  p.PeakCount,
				PeakHeight: p.PeakHeight,
				PeakShift:  p.PeakShift,
				NodeCount:  p.NodeCount,
			},
		}
		if p.Material != "" {
			specs[i].Material = materialID(cfg, p.Material)
		}
		if pl.concrete != pl.base {
			assign.Overrides[i] = material.ID(pl.concrete)
		}
	}

	s, err := particle.Assemble(specs, assign)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", io.ErrConfig, err)
	}
	return s, nil
}
