package remesh

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/interpolate"
	"github.com/phil-mansfield/gosinter/particle"
)

// FreeSurface adds and removes surface nodes so that the node spacing stays
// close to a reference spacing w: perimeter / TargetNodeCount, or the
// particle's current mean node spacing if TargetNodeCount is zero. Lengths
// are relative to w, angles are in radians.
type FreeSurface struct {
	// DeletionLimit removes nodes where the contour turns by less than this
	// angle, as long as the merged gap stays below MaxWidthFactor w.
	DeletionLimit float64
	// AdditionLimit adds nodes into gaps longer than w where the contour
	// turns by more than this angle at either end.
	AdditionLimit float64
	// MinWidthFactor removes nodes whose gaps on both sides are below
	// MinWidthFactor w.
	MinWidthFactor float64
	// MaxWidthFactor splits every gap longer than MaxWidthFactor w.
	MaxWidthFactor float64
	// TwinPointLimit removes nodes closer than TwinPointLimit w to their
	// predecessor.
	TwinPointLimit float64
	// NeckProtectionCount is the number of nodes on either side of a neck
	// or grain boundary node which are never removed.
	NeckProtectionCount int
	// TargetNodeCount sets the reference spacing. Zero keeps the spacing
	// each particle currently has.
	TargetNodeCount int
}

// DefaultFreeSurface returns the remesher with its default parameters.
func DefaultFreeSurface() FreeSurface {
	return FreeSurface{
		DeletionLimit:       0.05,
		AdditionLimit:       0.5,
		MinWidthFactor:      0.25,
		MaxWidthFactor:      3,
		TwinPointLimit:      0.1,
		NeckProtectionCount: 5,
		TargetNodeCount:     100,
	}
}

// Validate checks the parameters for consistency.
func (fs FreeSurface) Validate() error {
	switch {
	case fs.TargetNodeCount != 0 && fs.TargetNodeCount < 3:
		return fmt.Errorf("target node count must be 0 or at least 3, but is %d",
			fs.TargetNodeCount)
	case fs.DeletionLimit < 0 || fs.MinWidthFactor < 0 || fs.TwinPointLimit < 0:
		return fmt.Errorf("deletion limits must be non-negative")
	case fs.MaxWidthFactor <= 1:
		return fmt.Errorf("max width factor must be larger than 1, but is %g",
			fs.MaxWidthFactor)
	case fs.MinWidthFactor >= 1:
		return fmt.Errorf("min width factor must be smaller than 1, but is %g",
			fs.MinWidthFactor)
	case fs.AdditionLimit <= 2*fs.DeletionLimit:
		return fmt.Errorf("addition limit %g must exceed twice the deletion "+
			"limit %g", fs.AdditionLimit, fs.DeletionLimit)
	case fs.NeckProtectionCount < 0:
		return fmt.Errorf("neck protection count must be non-negative")
	}
	return nil
}

func (fs FreeSurface) RemeshSystem(s *particle.SystemState) (*particle.SystemState, error) {
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return mapParticles(s, func(p particle.Particle) ([]particle.Node, error) {
		w := fs.spacing(p)
		nodes := fs.delete(p.Nodes(), w)
		return fs.add(p.Center(), nodes, w), nil
	})
}

// spacing returns the reference spacing w of p.
func (fs FreeSurface) spacing(p particle.Particle) float64 {
	if fs.TargetNodeCount == 0 {
		return p.MeanSpacing()
	}
	return p.Polygon().Perimeter() / float64(fs.TargetNodeCount)
}

// protected marks the nodes which may not be removed.
func (fs FreeSurface) protected(nodes []particle.Node) []bool {
	n := len(nodes)
	out := make([]bool, n)
	for i := range nodes {
		if nodes[i].Type == particle.Surface {
			continue
		}
		for k := -fs.NeckProtectionCount; k <= fs.NeckProtectionCount; k++ {
			out[((i+k)%n+n)%n] = true
		}
	}
	return out
}

func (fs FreeSurface) delete(nodes []particle.Node, w float64) []particle.Node {
	n := len(nodes)
	if n <= 4 {
		return nodes
	}
	prot := fs.protected(nodes)

	out := make([]particle.Node, 0, n)
	removed := 0
	for i, node := range nodes {
		if prot[i] || node.Type != particle.Surface || n-removed <= 4 {
			out = append(out, node)
			continue
		}

		prev := nodes[n-1]
		if len(out) > 0 {
			prev = out[len(out)-1]
		}
		next := nodes[nextIdx(i, n)]

		gapPrev := node.Position.Dist(prev.Position)
		gapNext := node.Position.Dist(next.Position)
		merged := prev.Position.Dist(next.Position)

		drop := gapPrev < fs.TwinPointLimit*w
		if merged <= fs.MaxWidthFactor*w {
			drop = drop || turningAngle(prev, node, next) < fs.DeletionLimit ||
				(gapPrev < fs.MinWidthFactor*w && gapNext < fs.MinWidthFactor*w)
		}
		if drop {
			removed++
			continue
		}
		out = append(out, node)
	}
	return out
}

func (fs FreeSurface) add(
	center geom.Vec, nodes []particle.Node, w float64,
) []particle.Node {
	n := len(nodes)
	out := make([]particle.Node, 0, n+n/4)
	for i := range nodes {
		j := nextIdx(i, n)
		out = append(out, nodes[i])
		if nodes[i].Type == particle.GrainBoundary &&
			nodes[j].Type == particle.GrainBoundary {
			continue
		}

		gap := nodes[i].Position.Dist(nodes[j].Position)
		split := gap > fs.MaxWidthFactor*w
		if !split && gap > w {
			turnI := turningAngle(nodes[prevIdx(i, n)], nodes[i], nodes[j])
			turnJ := turningAngle(nodes[i], nodes[j], nodes[nextIdx(j, n)])
			split = turnI > fs.AdditionLimit || turnJ > fs.AdditionLimit
		}
		if split {
			out = append(out, particle.Node{
				ID:       uuid.New(),
				Type:     particle.Surface,
				Position: interpolateNode(center, nodes, i),
			})
		}
	}
	return out
}

// interpolateNode returns a point between nodes i and i+1 on a cubic spline
// of the radius as a function of polar angle through the four surrounding
// nodes. It falls back to the midpoint when the contour is not star-shaped
// around the center there.
func interpolateNode(center geom.Vec, nodes []particle.Node, i int) geom.Vec {
	n := len(nodes)
	a, b := nodes[i].Position, nodes[nextIdx(i, n)].Position
	mid := a.Add(b).Scale(0.5)

	idx := []int{prevIdx(i, n), i, nextIdx(i, n), nextIdx(nextIdx(i, n), n)}
	phis, rs := make([]float64, 4), make([]float64, 4)
	for k, j := range idx {
		d := nodes[j].Position.Sub(center)
		rs[k] = d.Norm()
		phis[k] = d.Angle()
		if k > 0 {
			step := geom.NormalizeAngle(phis[k] - phis[k-1])
			if step == 0 || step > math.Pi/2 {
				return mid
			}
			phis[k] = phis[k-1] + step
		}
	}

	sp, err := interpolate.NewSpline(phis, rs)
	if err != nil {
		return mid
	}
	phi := (phis[1] + phis[2]) / 2
	return center.Add(geom.Polar(sp.Eval(phi), phi))
}
