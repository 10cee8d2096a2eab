/*package particle contains the particle system data model: contour nodes,
particles and the immutable SystemState passed between simulation stages.
*/
package particle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/geom"
)

// NodeType classifies a contour node.
type NodeType int

const (
	Surface NodeType = iota
	Neck
	GrainBoundary
	EndNodeType
)

var nodeTypeNames = [EndNodeType]string{"Surface", "Neck", "GrainBoundary"}

func (t NodeType) String() string {
	if t < 0 || t >= EndNodeType {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// ParseNodeType is the inverse of NodeType.String.
func ParseNodeType(s string) (NodeType, error) {
	for t := Surface; t < EndNodeType; t++ {
		if nodeTypeNames[t] == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type '%s'", s)
}

// Node is a point on a particle contour. Grain boundary nodes name the node
// on the other particle they are joined to.
type Node struct {
	ID       uuid.UUID
	Type     NodeType
	Position geom.Vec

	ContactParticle uuid.UUID
	ContactNode     uuid.UUID
}

// IsFree returns true for nodes which are not part of a grain boundary.
func (n Node) IsFree() bool { return n.Type != GrainBoundary }

// Particle is a closed, counter-clockwise contour of nodes around a center.
// Particles are values: every modifying method returns a new Particle.
type Particle struct {
	id       uuid.UUID
	material uuid.UUID
	center   geom.Vec
	rotation float64
	nodes    []Node
}

// New creates a particle. The node slice is copied.
func New(
	id, material uuid.UUID, center geom.Vec, rotation float64, nodes []Node,
) Particle {
	return Particle{
		id: id, material: material, center: center, rotation: rotation,
		nodes: append([]Node{}, nodes...),
	}
}

func (p Particle) ID() uuid.UUID         { return p.id }
func (p Particle) MaterialID() uuid.UUID { return p.material }
func (p Particle) Center() geom.Vec      { return p.center }
func (p Particle) Rotation() float64     { return p.rotation }
func (p Particle) NodeCount() int        { return len(p.nodes) }
func (p Particle) Node(i int) Node       { return p.nodes[i] }

// Nodes returns a copy of the contour.
func (p Particle) Nodes() []Node { return append([]Node{}, p.nodes...) }

// NodeIndex returns the index of the node with the given id, or -1.
func (p Particle) NodeIndex(id uuid.UUID) int {
	for i := range p.nodes {
		if p.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Polygon returns the node positions.
func (p Particle) Polygon() geom.Polygon {
	poly := make(geom.Polygon, len(p.nodes))
	for i := range p.nodes {
		poly[i] = p.nodes[i].Position
	}
	return poly
}

// MeanRadius returns the mean distance of the nodes from the center.
func (p Particle) MeanRadius() float64 {
	if len(p.nodes) == 0 {
		return 0
	}
	sum := 0.0
	for i := range p.nodes {
		sum += p.nodes[i].Position.Dist(p.center)
	}
	return sum / float64(len(p.nodes))
}

// MeanSpacing returns the mean distance between consecutive nodes.
func (p Particle) MeanSpacing() float64 {
	if len(p.nodes) == 0 {
		return 0
	}
	return p.Polygon().Perimeter() / float64(len(p.nodes))
}

// Translate returns the particle moved rigidly by d.
func (p Particle) Translate(d geom.Vec) Particle {
	out := p.WithNodes(p.nodes)
	out.center = p.center.Add(d)
	for i := range out.nodes {
		out.nodes[i].Position = out.nodes[i].Position.Add(d)
	}
	return out
}

// WithNodes returns the particle with its contour replaced by a copy of
// nodes.
func (p Particle) WithNodes(nodes []Node) Particle {
	return New(p.id, p.material, p.center, p.rotation, nodes)
}

// Contacts returns the ids of the particles this one shares grain boundaries
// with, in contour order and without duplicates.
func (p Particle) Contacts() []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, n := range p.nodes {
		if n.Type == GrainBoundary && !seen[n.ContactParticle] {
			seen[n.ContactParticle] = true
			out = append(out, n.ContactParticle)
		}
	}
	return out
}

// Join turns node ia of a and node ib of b into a matched grain boundary
// pair and returns the updated particles.
func Join(a, b Particle, ia, ib int) (Particle, Particle) {
	a, b = a.WithNodes(a.nodes), b.WithNodes(b.nodes)
	na, nb := &a.nodes[ia], &b.nodes[ib]
	na.Type, nb.Type = GrainBoundary, GrainBoundary
	na.ContactParticle, na.ContactNode = b.id, nb.ID
	nb.ContactParticle, nb.ContactNode = a.id, na.ID
	return a, b
}
