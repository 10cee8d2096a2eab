package solver

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/particle"
	"github.com/phil-mansfield/gosinter/remesh"
)

// StepWidthController picks the time step from the largest particle speed
// (m/s) and the smallest particle radius (m).
type StepWidthController interface {
	StepWidth(rate, length float64) float64
}

// MaximumDisplacementAngle limits each step so no particle moves further
// than Angle times the smallest particle radius.
type MaximumDisplacementAngle struct {
	Angle float64
}

func (c MaximumDisplacementAngle) StepWidth(rate, length float64) float64 {
	if rate == 0 {
		return math.Inf(+1)
	}
	return c.Angle * length / rate
}

// Fixed uses a constant step width.
type Fixed struct {
	Width float64
}

func (c Fixed) StepWidth(rate, length float64) float64 { return c.Width }

// BreakCondition ends the solution early.
type BreakCondition interface {
	IsMet(s *particle.SystemState) bool
}

// PoreClosed is met once the free surface enclosed by the convex hull of the
// particle centers is shorter than RelativeLimit times the mean particle
// radius. It is never met for fewer than three particles.
type PoreClosed struct {
	RelativeLimit float64
}

func (c PoreClosed) IsMet(s *particle.SystemState) bool {
	return PoreSurface(s) < c.RelativeLimit*meanRadius(s)
}

// PoreSurface returns the length of the free surface lying inside the convex
// hull of the particle centers, or +Inf if the hull is degenerate.
func PoreSurface(s *particle.SystemState) float64 {
	centers := make([]geom.Vec, s.ParticleCount())
	for i := range centers {
		centers[i] = s.Particle(i).Center()
	}
	hull := geom.ConvexHull(centers)
	if len(hull) < 3 || hull.Area() <= 0 {
		return math.Inf(+1)
	}

	sum := 0.0
	for i := 0; i < s.ParticleCount(); i++ {
		p := s.Particle(i)
		n := p.NodeCount()
		for k := 0; k < n; k++ {
			a, b := p.Node(k), p.Node((k+1)%n)
			if !a.IsFree() || !b.IsFree() {
				continue
			}
			mid := a.Position.Add(b.Position).Scale(0.5)
			if hull.Contains(mid) {
				sum += a.Position.Dist(b.Position)
			}
		}
	}
	return sum
}

func meanRadius(s *particle.SystemState) float64 {
	if s.ParticleCount() == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < s.ParticleCount(); i++ {
		sum += s.Particle(i).MeanRadius()
	}
	return sum / float64(s.ParticleCount())
}

// Routines bundles the exchangeable parts of the solver. It is used as a
// value: the With methods return modified copies.
type Routines struct {
	Remeshers           remesh.Chain
	BreakConditions     []BreakCondition
	StepWidthController StepWidthController
	MaxStepCount        int
}

// DefaultRoutines returns the routines used when nothing is configured.
func DefaultRoutines() Routines {
	return Routines{
		Remeshers:           remesh.Chain{remesh.NeckNeighborhood{}},
		StepWidthController: MaximumDisplacementAngle{Angle: 0.05},
		MaxStepCount:        100000,
	}
}

func (r Routines) clone() Routines {
	r.Remeshers = append(remesh.Chain{}, r.Remeshers...)
	r.BreakConditions = append([]BreakCondition{}, r.BreakConditions...)
	return r
}

func (r Routines) WithRemeshers(rs ...remesh.Remesher) Routines {
	out := r.clone()
	out.Remeshers = append(remesh.Chain{}, rs...)
	return out
}

func (r Routines) WithBreakConditions(bcs ...BreakCondition) Routines {
	out := r.clone()
	out.BreakConditions = append([]BreakCondition{}, bcs...)
	return out
}

func (r Routines) WithStepWidthController(c StepWidthController) Routines {
	out := r.clone()
	out.StepWidthController = c
	return out
}

func (r Routines) WithMaxStepCount(n int) Routines {
	out := r.clone()
	out.MaxStepCount = n
	return out
}

// Validate checks that the routines can drive a solution.
func (r Routines) Validate() error {
	if r.StepWidthController == nil {
		return fmt.Errorf("no step width controller")
	} else if r.MaxStepCount <= 0 {
		return fmt.Errorf("max step count must be positive, but is %d",
			r.MaxStepCount)
	}
	switch c := r.StepWidthController.(type) {
	case MaximumDisplacementAngle:
		if !(c.Angle > 0) {
			return fmt.Errorf("displacement angle must be positive, but is %g",
				c.Angle)
		}
	case Fixed:
		if !(c.Width > 0) {
			return fmt.Errorf("fixed step width must be positive, but is %g",
				c.Width)
		}
	}
	return nil
}
