package gosinter

//go:generate mockgen -source=sintering.go -destination=mocks/mocks.go -package=mocks Storage,Solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/phil-mansfield/gosinter/compaction"
	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/io"
	"github.com/phil-mansfield/gosinter/material"
	"github.com/phil-mansfield/gosinter/mocks"
	"github.com/phil-mansfield/gosinter/particle"
	"github.com/phil-mansfield/gosinter/solver"
)

func unitGraph(t *testing.T) material.Graph {
	b := material.NewBuilder(material.DefaultOptions())
	require.NoError(t, b.AddMaterial(material.Definition{
		Name:      "unit",
		Substance: material.SubstanceProperties{Density: 1, MolarMass: 1},
		Surface:   material.InterfaceProperties{DiffusionCoefficient: 1, Energy: 1},
	}))
	b.SetDefaultInterface(
		material.InterfaceProperties{DiffusionCoefficient: 1, Energy: 1},
	)
	g, err := b.Build(material.UsageTopology(map[string]int{"unit": 2}))
	require.NoError(t, err)
	return g
}

// twoCircles is two unit circles far apart.
func twoCircles(t *testing.T) *particle.SystemState {
	specs := []particle.Spec{
		{Name: "a", Shape: particle.ShapeFunction{
			Center: geom.Vec{-5, 0}, Radius: 1, NodeCount: 100,
		}},
		{Name: "b", Shape: particle.ShapeFunction{
			Center: geom.Vec{5, 0}, Radius: 1, NodeCount: 100,
		}},
	}
	s, err := particle.Assemble(
		specs, particle.Assignment{Default: material.ID("unit")},
	)
	require.NoError(t, err)
	return s
}

func focalStage() Stage {
	return CompactionStage{Compactor: &compaction.Focal{
		Params: compaction.Params{MinimumIntrusion: 0.1, MaxStepCount: 2},
	}}
}

// countingStage records how often it was applied.
type countingStage struct {
	name  string
	calls int
}

func (c *countingStage) Name() string { return c.name }

func (c *countingStage) Apply(s *particle.SystemState) (*particle.SystemState, error) {
	c.calls++
	return s, nil
}

func mockPipeline(
	t *testing.T, storage Storage, sol Solver, minimum int,
) (*Pipeline, *countingStage) {
	remeshing := &countingStage{name: "remeshing"}
	p := &Pipeline{
		Hub:        hub.New(nil),
		Compaction: focalStage(),
		Preconditions: []Precondition{
			ValidTopology{}, MinimumContacts{Minimum: minimum},
		},
		Remeshing: remeshing,
		Sintering: NewSinteringStep(3600, 1273, sol, unitGraph(t), 8.314),
		Storage:   storage,
	}
	return p, remeshing
}

func TestPipelineSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)

	storage.EXPECT().Store(gomock.Any()).Return(nil).Times(1)
	storage.EXPECT().Close().Return(nil).Times(1)
	sol.EXPECT().Solve(gomock.Any(), 3600.0, gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			s *particle.SystemState, d float64, env solver.Environment, h *hub.Hub,
		) (*particle.SystemState, error) {
			assert.Equal(t, 1273.0, env.Temperature)
			assert.Equal(t, 8.314, env.GasConstant)
			err := h.Publish(hub.Event{Kind: hub.SessionInitialized, New: s})
			return s.Advance(d, s.Particles()), err
		})

	p, remeshing := mockPipeline(t, storage, sol, 1)
	var labels []string
	p.Hub.Subscribe(hub.StageCompleted, func(ev hub.Event) error {
		labels = append(labels, ev.Label)
		return nil
	})

	initial := twoCircles(t)
	final, err := p.Run(initial)
	require.NoError(t, err)

	assert.Equal(t, 3600.0, final.Time())
	assert.Equal(t, 1, final.GrainBoundaryPairs())
	assert.Equal(t, 1, remeshing.calls)
	assert.Equal(t,
		[]string{"initial", "compaction", "remeshing", "sintering"}, labels)
	assert.Equal(t, 0, p.Hub.Len(hub.SessionInitialized))
	assert.Equal(t, 0, p.Hub.Len(hub.StepCalculated))
	assert.Equal(t, 0, initial.GrainBoundaryPairs())
}

func TestPipelinePreconditionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)
	storage.EXPECT().Close().Return(nil).Times(1)

	p, remeshing := mockPipeline(t, storage, sol, 3)
	_, err := p.Run(twoCircles(t))

	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "minimum-contacts", perr.Name)
	assert.Contains(t, err.Error(), "too few grain boundaries present: 1")
	assert.Equal(t, 0, remeshing.calls)
}

func TestPipelineSolverFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)

	storage.EXPECT().Close().Return(nil).Times(1)
	sol.EXPECT().Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, solver.ErrStepLimit)

	p, _ := mockPipeline(t, storage, sol, 1)
	_, err := p.Run(twoCircles(t))

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "sintering", serr.Stage)
	assert.ErrorIs(t, err, solver.ErrStepLimit)
}

func TestPipelineObserverFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)
	storage.EXPECT().Close().Return(nil).Times(1)

	p, remeshing := mockPipeline(t, storage, sol, 1)
	failure := errors.New("disk full")
	p.Hub.Subscribe(hub.StageCompleted, func(ev hub.Event) error {
		if ev.Label == "compaction" {
			return failure
		}
		return nil
	}, hub.Named("plots"))

	_, err := p.Run(twoCircles(t))
	var oerr *hub.ObserverError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "plots", oerr.Label)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 0, remeshing.calls)
}

func TestPipelineCloseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)

	failure := errors.New("footer not written")
	storage.EXPECT().Close().Return(failure).Times(1)
	sol.EXPECT().Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			s *particle.SystemState, d float64, _ solver.Environment, _ *hub.Hub,
		) (*particle.SystemState, error) {
			return s.Advance(d, s.Particles()), nil
		})

	p, _ := mockPipeline(t, storage, sol, 1)
	final, err := p.Run(twoCircles(t))
	assert.Nil(t, final)
	assert.ErrorIs(t, err, failure)
}

func TestSinteringStepReleasesStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)

	storage.EXPECT().Store(gomock.Any()).Return(errors.New("read only")).Times(1)
	storage.EXPECT().Close().Return(nil).Times(1)
	sol.EXPECT().Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			s *particle.SystemState, _ float64, _ solver.Environment, h *hub.Hub,
		) (*particle.SystemState, error) {
			if err := h.Publish(hub.Event{Kind: hub.StepCalculated, New: s}); err != nil {
				return nil, err
			}
			return s, nil
		})

	h := hub.New(nil)
	step := NewSinteringStep(1, 1, sol, unitGraph(t), 1)
	step.UseStorage(storage)
	step.UseHub(h)

	_, err := step.Solve(twoCircles(t))
	var oerr *hub.ObserverError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "storage", oerr.Label)
	assert.Equal(t, 0, h.Len(hub.StepCalculated))
	assert.Equal(t, 0, h.Len(hub.SessionInitialized))

	// The guard is shared, so a later close is a no-op.
	assert.NoError(t, step.storage.Close())
}

func TestSinteringStepTolerant(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	sol := mocks.NewMockSolver(ctrl)

	storage.EXPECT().Store(gomock.Any()).Return(errors.New("read only")).Times(2)
	storage.EXPECT().Close().Return(nil).Times(1)
	sol.EXPECT().Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			s *particle.SystemState, _ float64, _ solver.Environment, h *hub.Hub,
		) (*particle.SystemState, error) {
			for i := 0; i < 2; i++ {
				err := h.Publish(hub.Event{Kind: hub.StepCalculated, New: s})
				if err != nil {
					return nil, err
				}
			}
			return s, nil
		})

	step := NewSinteringStep(1, 1, sol, unitGraph(t), 1)
	step.Tolerant = true
	step.UseStorage(storage)

	_, err := step.Solve(twoCircles(t))
	assert.NoError(t, err)
}

func TestPipelineEndToEnd(t *testing.T) {
	storage := io.NewMemoryStorage()
	routines := solver.DefaultRoutines().
		WithStepWidthController(solver.Fixed{Width: 1e-3})

	p := &Pipeline{
		Compaction:    focalStage(),
		Preconditions: []Precondition{ValidTopology{}, MinimumContacts{1}},
		Sintering: NewSinteringStep(
			5e-3, 1, solver.New(routines, 0, nil), unitGraph(t), 1,
		),
		Storage: storage,
	}

	final, err := p.Run(twoCircles(t))
	require.NoError(t, err)
	require.NoError(t, final.Validate())

	assert.InDelta(t, 5e-3, final.Time(), 1e-12)
	assert.Equal(t, 1, final.GrainBoundaryPairs())
	assert.Less(t, final.Particle(0).Center().Dist(final.Particle(1).Center()), 1.9)

	// One session start and five steps.
	assert.Len(t, storage.States(), 6)
	assert.Equal(t, 1, storage.Closes())
}

func TestValidate(t *testing.T) {
	s := twoCircles(t)
	failure := errors.New("no")
	table := []struct {
		pre  []Precondition
		name string
	}{
		{nil, ""},
		{[]Precondition{ValidTopology{}, MinimumContacts{0}}, ""},
		{[]Precondition{MinimumContacts{1}}, "minimum-contacts"},
		{[]Precondition{
			PreconditionFunc{"ok", func(*particle.SystemState) error { return nil }},
			PreconditionFunc{"custom", func(*particle.SystemState) error { return failure }},
			MinimumContacts{1},
		}, "custom"},
	}

	for i, test := range table {
		err := Validate(s, test.pre...)
		if test.name == "" {
			if err != nil {
				t.Errorf("%d) Expected no error, got '%v'.", i+1, err)
			}
			continue
		}
		var perr *PreconditionError
		if !errors.As(err, &perr) || perr.Name != test.name {
			t.Errorf("%d) Expected failure of '%s', got '%v'.", i+1, test.name, err)
		}
	}
}

func TestRunnerPublishes(t *testing.T) {
	h := hub.New(nil)
	var got []hub.Event
	h.Subscribe(hub.StageCompleted, func(ev hub.Event) error {
		got = append(got, ev)
		return nil
	})

	s := twoCircles(t)
	out, err := NewRunner(h, nil).Run(s, focalStage())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "compaction", got[0].Label)
	assert.Same(t, s, got[0].Old)
	assert.Same(t, out, got[0].New)

	_, err = NewRunner(h, nil).Run(s, CompactionStage{&compaction.OneByOne{
		Params: compaction.Params{StepDistance: 1e-3, MaxStepCount: 1},
	}})
	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, compaction.ErrNotConverged)
	assert.Len(t, got, 1)
}
