/*package solver advances a compacted particle system through time. Contacts
shrink under the grain boundary driving force while the solver remeshes
the system at the start of every session and reports each step to the
observability hub.
*/
package solver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/material"
	"github.com/phil-mansfield/gosinter/particle"
)

var (
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrInstability = errors.New("numerical instability")
)

const (
	timeEps = 1e-12
	// Contacts whose centers are closer than densifiedFactor times the sum
	// of their radii stop approaching.
	densifiedFactor = 0.5
)

// Environment holds the process conditions of a solution.
type Environment struct {
	Temperature          float64 // K
	GasConstant          float64 // J/(mol K)
	VacancyConcentration float64 // zero disables the factor
	Materials            material.Graph
}

func (env Environment) Validate() error {
	switch {
	case !(env.Temperature > 0):
		return fmt.Errorf("temperature must be positive, but is %g",
			env.Temperature)
	case !(env.GasConstant > 0):
		return fmt.Errorf("gas constant must be positive, but is %g",
			env.GasConstant)
	case env.VacancyConcentration < 0:
		return fmt.Errorf("vacancy concentration must be non-negative, "+
			"but is %g", env.VacancyConcentration)
	case env.Materials == nil:
		return fmt.Errorf("no material graph")
	}
	return nil
}

// SinteringSolver solves the sintering of a particle system.
type SinteringSolver struct {
	Routines Routines
	// RemeshingEverySteps is the number of steps per session. Zero or less
	// means a single session.
	RemeshingEverySteps int
	Logger              *slog.Logger
}

func New(routines Routines, remeshingEverySteps int, logger *slog.Logger) *SinteringSolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SinteringSolver{
		Routines: routines, RemeshingEverySteps: remeshingEverySteps,
		Logger: logger,
	}
}

// Solve advances s by duration seconds. Every session publishes
// hub.SessionInitialized and every step hub.StepCalculated; a failing
// critical observer aborts the solution.
func (sol *SinteringSolver) Solve(
	s *particle.SystemState, duration float64, env Environment, h *hub.Hub,
) (*particle.SystemState, error) {
	if err := sol.Routines.Validate(); err != nil {
		return nil, err
	} else if err := env.Validate(); err != nil {
		return nil, err
	} else if !(duration >= 0) {
		return nil, fmt.Errorf("duration must be non-negative, but is %g",
			duration)
	} else if _, err := contacts(s, env.Materials); err != nil {
		return nil, err
	}
	if h == nil {
		h = hub.New(sol.Logger)
	}

	end := s.Time() + duration
	steps := 0
	for session := 0; ; session++ {
		// Later sessions are only opened while there is something left to solve.
		if session > 0 && sol.done(s, end, steps, session) {
			return s, nil
		}
		var err error
		if s, err = sol.initSession(s, session, h); err != nil {
			return nil, err
		}

		for k := 0; sol.RemeshingEverySteps <= 0 || k < sol.RemeshingEverySteps; k++ {
			if sol.done(s, end, steps, session+1) {
				return s, nil
			}
			if steps >= sol.Routines.MaxStepCount {
				return nil, fmt.Errorf("%w: reached t = %g of %g after %d steps",
					ErrStepLimit, s.Time(), end, steps)
			}

			next, err := sol.step(s, end-s.Time(), env)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", steps+1, err)
			}
			steps++
			sol.Logger.Debug("step calculated", "step", steps,
				"time", next.Time(), "width", next.Time()-s.Time())

			err = h.Publish(hub.Event{
				Kind: hub.StepCalculated, Label: "step", Index: steps,
				Old: s, New: next,
			})
			if err != nil {
				return nil, err
			}
			s = next
		}
	}
}

// done reports whether s has reached end or met a break condition.
func (sol *SinteringSolver) done(
	s *particle.SystemState, end float64, steps, sessions int,
) bool {
	if s.Time() >= end-timeEps*math.Max(1, math.Abs(end)) {
		sol.Logger.Info("solution finished", "time", s.Time(),
			"steps", steps, "sessions", sessions)
		return true
	}
	for _, bc := range sol.Routines.BreakConditions {
		if bc.IsMet(s) {
			sol.Logger.Info("break condition met",
				"condition", fmt.Sprintf("%T", bc), "time", s.Time(),
				"steps", steps)
			return true
		}
	}
	return false
}

func (sol *SinteringSolver) initSession(
	s *particle.SystemState, session int, h *hub.Hub,
) (*particle.SystemState, error) {
	remeshed, err := sol.Routines.Remeshers.RemeshSystem(s)
	if err != nil {
		return nil, err
	}
	if remeshed.ID() == s.ID() {
		remeshed = remeshed.WithID(uuid.New())
	}
	sol.Logger.Info("session initialized", "session", session,
		"time", remeshed.Time(), "nodes", remeshed.NodeCount(),
		"contacts", remeshed.GrainBoundaryPairs())

	err = h.Publish(hub.Event{
		Kind: hub.SessionInitialized, Label: "session", Index: session,
		New: remeshed,
	})
	if err != nil {
		return nil, err
	}
	return remeshed, nil
}

// contact is a grain boundary between particles i and j at node indices ni
// and nj.
type contact struct {
	i, j, ni, nj int
	ij, ji       material.InterfaceProperties
}

// contacts lists every grain boundary once and resolves its properties.
func contacts(s *particle.SystemState, g material.Graph) ([]contact, error) {
	var out []contact
	for i := 0; i < s.ParticleCount(); i++ {
		p := s.Particle(i)
		if _, err := g.Get(p.MaterialID()); err != nil {
			return nil, fmt.Errorf("particle %s: %w", p.ID(), err)
		}
		for ni := 0; ni < p.NodeCount(); ni++ {
			node := p.Node(ni)
			if node.Type != particle.GrainBoundary {
				continue
			}
			j := s.IndexOf(node.ContactParticle)
			if j < 0 {
				return nil, fmt.Errorf("particle %s has a grain boundary to "+
					"missing particle %s", p.ID(), node.ContactParticle)
			} else if j < i {
				continue
			}
			q := s.Particle(j)
			nj := q.NodeIndex(node.ContactNode)
			if nj < 0 {
				return nil, fmt.Errorf("particle %s has a grain boundary to "+
					"missing node %s", p.ID(), node.ContactNode)
			}
			ij, ji, err := g.Contact(p.MaterialID(), q.MaterialID())
			if err != nil {
				return nil, err
			}
			out = append(out, contact{i, j, ni, nj, ij, ji})
		}
	}
	return out, nil
}

// step advances the system by one step no longer than remaining.
func (sol *SinteringSolver) step(
	s *particle.SystemState, remaining float64, env Environment,
) (*particle.SystemState, error) {
	cs, err := contacts(s, env.Materials)
	if err != nil {
		return nil, err
	}
	ps := s.Particles()
	vel := make([]geom.Vec, len(ps))

	minR := math.Inf(+1)
	for i := range ps {
		minR = math.Min(minR, ps[i].MeanRadius())
	}

	for _, c := range cs {
		v, err := approachRate(ps[c.i], ps[c.j], c, env)
		if err != nil {
			return nil, err
		}
		da, db := c.ij.DiffusionCoefficient, c.ji.DiffusionCoefficient
		if v == 0 || da+db == 0 {
			continue
		}
		dir := ps[c.j].Center().Sub(ps[c.i].Center()).Unit()
		vel[c.i] = vel[c.i].Add(dir.Scale(v * da / (da + db)))
		vel[c.j] = vel[c.j].Sub(dir.Scale(v * db / (da + db)))
	}

	rate := 0.0
	for i := range vel {
		if !vel[i].IsFinite() {
			return nil, fmt.Errorf("%w: velocity of particle %s is %v",
				ErrInstability, ps[i].ID(), vel[i])
		}
		rate = math.Max(rate, vel[i].Norm())
	}

	dt := math.Min(sol.Routines.StepWidthController.StepWidth(rate, minR), remaining)
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: step width %g", ErrInstability, dt)
	}

	for i := range ps {
		if vel[i] != (geom.Vec{}) {
			ps[i] = ps[i].Translate(vel[i].Scale(dt))
		}
	}
	for _, c := range cs {
		ps[c.i], ps[c.j] = flatten(ps[c.i], ps[c.j], c.ni, c.nj)
	}
	return s.Advance(dt, ps), nil
}

// approachRate returns the speed at which the centers of a contact
// approach each other.
func approachRate(a, b particle.Particle, c contact, env Environment) (float64, error) {
	ma, err := env.Materials.Get(a.MaterialID())
	if err != nil {
		return 0, err
	}
	mb, err := env.Materials.Get(b.MaterialID())
	if err != nil {
		return 0, err
	}

	drive := ma.Surface().Energy + mb.Surface().Energy -
		(c.ij.Energy + c.ji.Energy)
	ra, rb := a.MeanRadius(), b.MeanRadius()
	d := a.Center().Dist(b.Center())
	if drive <= 0 || d <= densifiedFactor*(ra+rb) {
		return 0, nil
	}

	r := math.Min(ra, rb)
	neck := math.Max(neckRadius(ra, rb, d), 0.05*r)
	vm := (ma.Substance().MolarVolume() + mb.Substance().MolarVolume()) / 2
	dMean := (c.ij.DiffusionCoefficient + c.ji.DiffusionCoefficient) / 2

	v := dMean * drive * vm / (env.GasConstant * env.Temperature * r * neck)
	if env.VacancyConcentration > 0 {
		v *= env.VacancyConcentration
	}
	return v, nil
}

// neckRadius is the half-length of the chord shared by two circles of radii
// ra and rb at distance d, or zero if they do not overlap.
func neckRadius(ra, rb, d float64) float64 {
	if d >= ra+rb || d == 0 {
		return 0
	}
	x := (d*d + ra*ra - rb*rb) / (2 * d)
	h2 := ra*ra - x*x
	if h2 <= 0 {
		return 0
	}
	return math.Sqrt(h2)
}

// flatten moves the overlapping parts of particles a and b onto their grain
// boundary line and places the grain boundary nodes ga and gb on it.
func flatten(a, b particle.Particle, ga, gb int) (particle.Particle, particle.Particle) {
	ca, cb := a.Center(), b.Center()
	d := cb.Sub(ca).Norm()
	if d == 0 {
		return a, b
	}
	n := cb.Sub(ca).Scale(1 / d)
	ra, rb := a.MeanRadius(), b.MeanRadius()
	x := math.Max(0, math.Min(d, (d*d+ra*ra-rb*rb)/(2*d)))
	m := ca.Add(n.Scale(x))

	project := func(p particle.Particle, sign float64, g int, other geom.Vec) particle.Particle {
		nodes := p.Nodes()
		for k := range nodes {
			if over := nodes[k].Position.Sub(m).Dot(n) * sign; over > 0 {
				nodes[k].Position = nodes[k].Position.Sub(n.Scale(over * sign))
			}
		}
		mid := nodes[g].Position.Add(other).Scale(0.5)
		nodes[g].Position = mid.Sub(n.Scale(mid.Sub(m).Dot(n)))
		return p.WithNodes(nodes)
	}

	pa, pb := a.Node(ga).Position, b.Node(gb).Position
	return project(a, +1, ga, pb), project(b, -1, gb, pa)
}
