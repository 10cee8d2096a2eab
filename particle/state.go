package particle

import (
	"fmt"

	"github.com/google/uuid"
)

// SystemState is an immutable snapshot of the particle system.
type SystemState struct {
	id        uuid.UUID
	time      float64
	particles []Particle
	index     map[uuid.UUID]int
}

// NewState creates a state. The particle slice is copied.
func NewState(id uuid.UUID, time float64, particles []Particle) *SystemState {
	s := &SystemState{
		id: id, time: time,
		particles: append([]Particle{}, particles...),
		index:     make(map[uuid.UUID]int, len(particles)),
	}
	for i := range s.particles {
		s.index[s.particles[i].id] = i
	}
	return s
}

func (s *SystemState) ID() uuid.UUID      { return s.id }
func (s *SystemState) Time() float64      { return s.time }
func (s *SystemState) ParticleCount() int { return len(s.particles) }
func (s *SystemState) Particle(i int) Particle {
	return s.particles[i]
}

// Particles returns a copy of the particle list.
func (s *SystemState) Particles() []Particle {
	return append([]Particle{}, s.particles...)
}

// Lookup returns the particle with the given id.
func (s *SystemState) Lookup(id uuid.UUID) (Particle, bool) {
	i, ok := s.index[id]
	if !ok {
		return Particle{}, false
	}
	return s.particles[i], true
}

// IndexOf returns the index of the particle with the given id, or -1.
func (s *SystemState) IndexOf(id uuid.UUID) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// WithID returns a copy carrying a different id.
func (s *SystemState) WithID(id uuid.UUID) *SystemState {
	return NewState(id, s.time, s.particles)
}

// WithParticles returns a state with the same id and time but different
// particles.
func (s *SystemState) WithParticles(particles []Particle) *SystemState {
	return NewState(s.id, s.time, particles)
}

// Advance returns a state with the same id, a later time and new particles.
func (s *SystemState) Advance(dt float64, particles []Particle) *SystemState {
	return NewState(s.id, s.time+dt, particles)
}

// NodeCount returns the total number of nodes in the system.
func (s *SystemState) NodeCount() int {
	n := 0
	for i := range s.particles {
		n += len(s.particles[i].nodes)
	}
	return n
}

// GrainBoundaryPairs returns the number of grain boundary node pairs, the
// number of contacts in the system.
func (s *SystemState) GrainBoundaryPairs() int {
	n := 0
	for i := range s.particles {
		for _, node := range s.particles[i].nodes {
			if node.Type == GrainBoundary {
				n++
			}
		}
	}
	return n / 2
}

// Validate checks that grain boundary nodes come in matched pairs across
// two different particles.
func (s *SystemState) Validate() error {
	for _, p := range s.particles {
		for _, n := range p.nodes {
			if n.Type != GrainBoundary {
				continue
			}
			if n.ContactParticle == p.id {
				return fmt.Errorf("grain boundary node %s of particle %s "+
					"points at its own particle", n.ID, p.id)
			}
			other, ok := s.Lookup(n.ContactParticle)
			if !ok {
				return fmt.Errorf("grain boundary node %s of particle %s "+
					"points at missing particle %s", n.ID, p.id, n.ContactParticle)
			}
			j := other.NodeIndex(n.ContactNode)
			if j < 0 {
				return fmt.Errorf("grain boundary node %s of particle %s "+
					"points at missing node %s", n.ID, p.id, n.ContactNode)
			}
			back := other.nodes[j]
			if back.Type != GrainBoundary || back.ContactParticle != p.id ||
				back.ContactNode != n.ID {
				return fmt.Errorf("grain boundary node %s of particle %s "+
					"is not matched by node %s", n.ID, p.id, back.ID)
			}
		}
	}
	return nil
}
