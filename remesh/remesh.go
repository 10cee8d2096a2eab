/*package remesh contains the contour remeshers applied between simulation
stages and at the start of every solver session.
*/
package remesh

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/particle"
)

// Remesher rewrites the contours of every particle in a system. Remeshers
// keep the state id; Chain assigns a new one.
type Remesher interface {
	RemeshSystem(s *particle.SystemState) (*particle.SystemState, error)
}

// Chain applies remeshers left to right, each one consuming the previous
// one's output. The result of a non-empty chain gets a fresh state id.
type Chain []Remesher

func (c Chain) RemeshSystem(s *particle.SystemState) (*particle.SystemState, error) {
	if len(c) == 0 {
		return s, nil
	}
	var err error
	for i, r := range c {
		if s, err = r.RemeshSystem(s); err != nil {
			return nil, fmt.Errorf("remesher %d (%s): %w", i+1, Name(r), err)
		}
	}
	return s.WithID(uuid.New()), nil
}

// Name returns a readable name for a remesher.
func Name(r Remesher) string {
	switch r.(type) {
	case *FreeSurface, FreeSurface:
		return "free-surface"
	case *NeckNeighborhood, NeckNeighborhood:
		return "neck-neighborhood"
	case *LastSurfaceNode, LastSurfaceNode:
		return "last-surface-node"
	case Chain:
		return "chain"
	}
	return fmt.Sprintf("%T", r)
}

// mapParticles applies f to every particle.
func mapParticles(
	s *particle.SystemState, f func(p particle.Particle) ([]particle.Node, error),
) (*particle.SystemState, error) {
	ps := s.Particles()
	for i := range ps {
		nodes, err := f(ps[i])
		if err != nil {
			return nil, fmt.Errorf("particle %s: %w", ps[i].ID(), err)
		}
		ps[i] = ps[i].WithNodes(nodes)
	}
	return s.WithParticles(ps), nil
}

func prevIdx(i, n int) int { return (i + n - 1) % n }
func nextIdx(i, n int) int { return (i + 1) % n }

// turningAngle returns the absolute change in direction of the contour at
// node b.
func turningAngle(a, b, c particle.Node) float64 {
	u := b.Position.Sub(a.Position)
	v := c.Position.Sub(b.Position)
	return math.Abs(math.Atan2(u.Cross(v), u.Dot(v)))
}

// NeckNeighborhood marks the free nodes next to grain boundary nodes as neck
// nodes and turns neck nodes which lost their grain boundary neighbor back
// into surface nodes.
type NeckNeighborhood struct{}

func (NeckNeighborhood) RemeshSystem(s *particle.SystemState) (*particle.SystemState, error) {
	return mapParticles(s, func(p particle.Particle) ([]particle.Node, error) {
		nodes := p.Nodes()
		n := len(nodes)
		for i := range nodes {
			if nodes[i].Type == particle.GrainBoundary {
				continue
			}
			if nodes[prevIdx(i, n)].Type == particle.GrainBoundary ||
				nodes[nextIdx(i, n)].Type == particle.GrainBoundary {
				nodes[i].Type = particle.Neck
			} else if nodes[i].Type == particle.Neck {
				nodes[i].Type = particle.Surface
			}
		}
		return nodes, nil
	})
}

// LastSurfaceNode inserts a surface node between two adjacent neck nodes so
// that every free surface segment keeps at least one free node.
type LastSurfaceNode struct{}

func (LastSurfaceNode) RemeshSystem(s *particle.SystemState) (*particle.SystemState, error) {
	return mapParticles(s, func(p particle.Particle) ([]particle.Node, error) {
		nodes := p.Nodes()
		n := len(nodes)
		out := make([]particle.Node, 0, n+2)
		for i := range nodes {
			out = append(out, nodes[i])
			next := nodes[nextIdx(i, n)]
			if nodes[i].Type == particle.Neck && next.Type == particle.Neck {
				out = append(out, particle.Node{
					ID:       uuid.New(),
					Type:     particle.Surface,
					Position: nodes[i].Position.Add(next.Position).Scale(0.5),
				})
			}
		}
		return out, nil
	})
}
