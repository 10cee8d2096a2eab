/*package compaction moves particles together until they form grain boundary
contacts. Particles joined by contacts form agglomerates which move
rigidly.
*/
package compaction

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/particle"
)

var ErrNotConverged = errors.New("compaction did not converge")

// Reporter receives every intermediate state. A returned error aborts the
// compaction.
type Reporter func(s *particle.SystemState) error

// Params are shared by all compaction strategies.
type Params struct {
	// StepDistance limits how far an agglomerate moves in one step. Zero
	// means no limit.
	StepDistance float64
	// MinimumIntrusion is the depth two particles must overlap along the
	// direction of motion before a contact forms.
	MinimumIntrusion float64
	// MinimumRelativeIntrusion, if set, replaces MinimumIntrusion with a
	// fraction of StepDistance, or of the smallest particle radius when
	// StepDistance is zero.
	MinimumRelativeIntrusion float64
	MaxStepCount             int
}

func (p Params) Validate() error {
	switch {
	case p.StepDistance < 0:
		return fmt.Errorf("step distance must be non-negative, but is %g",
			p.StepDistance)
	case p.MinimumIntrusion < 0:
		return fmt.Errorf("minimum intrusion must be non-negative, but is %g",
			p.MinimumIntrusion)
	case p.MinimumRelativeIntrusion < 0:
		return fmt.Errorf("minimum relative intrusion must be non-negative, "+
			"but is %g", p.MinimumRelativeIntrusion)
	case p.MaxStepCount <= 0:
		return fmt.Errorf("max step count must be positive, but is %d",
			p.MaxStepCount)
	}
	return nil
}

// system is the mutable working copy of a state during compaction.
type system struct {
	id     uuid.UUID
	time   float64
	ps     []particle.Particle
	polys  []geom.Polygon
	radii  []float64
	parent []int

	step     float64
	thr, tol float64
}

func newSystem(s *particle.SystemState, p Params) *system {
	n := s.ParticleCount()
	sys := &system{
		id: uuid.New(), time: s.Time(), ps: s.Particles(),
		polys: make([]geom.Polygon, n), radii: make([]float64, n),
		parent: make([]int, n), step: p.StepDistance,
	}

	minR := math.Inf(+1)
	for i := range sys.ps {
		sys.parent[i] = i
		sys.refresh(i)
		minR = math.Min(minR, sys.ps[i].MeanRadius())
	}
	for i := range sys.ps {
		for _, other := range sys.ps[i].Contacts() {
			if j := s.IndexOf(other); j >= 0 {
				sys.union(i, j)
			}
		}
	}

	sys.thr = p.MinimumIntrusion
	if p.MinimumRelativeIntrusion > 0 {
		ref := p.StepDistance
		if ref == 0 {
			ref = minR
		}
		sys.thr = p.MinimumRelativeIntrusion * ref
	}
	if sys.thr <= 0 {
		sys.thr = 1e-6 * minR
	}
	sys.tol = 1e-9*sys.thr + 1e-12*minR
	return sys
}

func (sys *system) refresh(i int) {
	sys.polys[i] = sys.ps[i].Polygon()
	r := 0.0
	for _, x := range sys.polys[i] {
		r = math.Max(r, x.Dist(sys.ps[i].Center()))
	}
	sys.radii[i] = r
}

func (sys *system) state() *particle.SystemState {
	return particle.NewState(sys.id, sys.time, sys.ps)
}

func (sys *system) find(i int) int {
	for sys.parent[i] != i {
		sys.parent[i] = sys.parent[sys.parent[i]]
		i = sys.parent[i]
	}
	return i
}

func (sys *system) union(i, j int) {
	ri, rj := sys.find(i), sys.find(j)
	if ri < rj {
		sys.parent[rj] = ri
	} else if rj < ri {
		sys.parent[ri] = rj
	}
}

// members returns the indices of the agglomerate containing i.
func (sys *system) members(i int) []int {
	root := sys.find(i)
	var out []int
	for j := range sys.ps {
		if sys.find(j) == root {
			out = append(out, j)
		}
	}
	return out
}

// clusters returns every agglomerate ordered by its smallest index.
func (sys *system) clusters() [][]int {
	byRoot := map[int][]int{}
	var roots []int
	for i := range sys.ps {
		r := sys.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	sort.Ints(roots)
	out := make([][]int, len(roots))
	for k, r := range roots {
		out[k] = byRoot[r]
	}
	return out
}

func (sys *system) centroid(members []int) geom.Vec {
	cs := make([]geom.Vec, len(members))
	for k, i := range members {
		cs[k] = sys.ps[i].Center()
	}
	return geom.Mean(cs)
}

// reachable returns false if particle j cannot be hit by particle i moving
// along dir.
func (sys *system) reachable(i, j int, dir geom.Vec) bool {
	d := sys.ps[j].Center().Sub(sys.ps[i].Center())
	reach := sys.radii[i] + sys.radii[j]
	return d.Dot(dir) >= -reach && math.Abs(d.Cross(dir)) <= reach
}

// gap returns the distance the agglomerate can travel along dir before
// touching another particle.
func (sys *system) gap(members []int, dir geom.Vec) float64 {
	in := sys.memberSet(members)
	back := dir.Scale(-1)
	best := math.Inf(+1)
	for _, i := range members {
		for j := range sys.ps {
			if in[j] || !sys.reachable(i, j, dir) {
				continue
			}
			best = math.Min(best, rayGap(sys.polys[i], sys.polys[j], dir))
			best = math.Min(best, rayGap(sys.polys[j], sys.polys[i], back))
		}
	}
	return best
}

// rayGap casts rays from every vertex of from outside of to along dir.
func rayGap(from, to geom.Polygon, dir geom.Vec) float64 {
	best := math.Inf(+1)
	for _, x := range from {
		if to.Contains(x) {
			continue
		}
		if t, ok := to.RayDistance(x, dir); ok && t < best {
			best = t
		}
	}
	return best
}

// intrusion returns how deep particle i, moving along dir, has entered
// particle j, measured along dir.
func (sys *system) intrusion(i, j int, dir geom.Vec) float64 {
	depth := 0.0
	pi, pj := sys.polys[i], sys.polys[j]
	back := dir.Scale(-1)
	for _, x := range pi {
		if pj.Contains(x) {
			if t, ok := pj.RayDistance(x, back); ok {
				depth = math.Max(depth, t)
			}
		}
	}
	for _, y := range pj {
		if pi.Contains(y) {
			if t, ok := pi.RayDistance(y, dir); ok {
				depth = math.Max(depth, t)
			}
		}
	}
	return depth
}

func (sys *system) memberSet(members []int) map[int]bool {
	in := make(map[int]bool, len(members))
	for _, i := range members {
		in[i] = true
	}
	return in
}

// move translates the agglomerate along the unit vector dir by at most
// maxTravel, stopping once it intrudes another particle by the threshold,
// and forms the resulting contacts. It returns the distance travelled.
func (sys *system) move(members []int, dir geom.Vec, maxTravel float64) float64 {
	travel := maxTravel
	if sys.step > 0 && sys.step < travel {
		travel = sys.step
	}
	if free := sys.gap(members, dir); free+sys.thr < travel {
		travel = free + sys.thr
	}
	if travel <= 0 {
		return 0
	}

	d := dir.Scale(travel)
	for _, i := range members {
		sys.ps[i] = sys.ps[i].Translate(d)
		sys.refresh(i)
	}
	sys.connect(members, dir)
	return travel
}

// connect forms contacts between the agglomerate and every particle it
// intrudes by at least the threshold.
func (sys *system) connect(members []int, dir geom.Vec) {
	in := sys.memberSet(members)
	for _, i := range members {
		for j := range sys.ps {
			if in[j] || sys.touching(i, j) || !sys.reachable(i, j, dir) {
				continue
			}
			if sys.intrusion(i, j, dir) >= sys.thr-sys.tol {
				sys.join(i, j)
			}
		}
	}
}

func (sys *system) touching(i, j int) bool {
	id := sys.ps[j].ID()
	for _, other := range sys.ps[i].Contacts() {
		if other == id {
			return true
		}
	}
	return false
}

// join creates one grain boundary node pair between particles i and j from
// the free nodes closest to each other.
func (sys *system) join(i, j int) {
	a, b := sys.ps[i], sys.ps[j]
	ia := closestFree(a, b.Center())
	if ia < 0 {
		return
	}
	ib := closestFree(b, a.Node(ia).Position)
	if ib < 0 {
		return
	}
	sys.ps[i], sys.ps[j] = particle.Join(a, b, ia, ib)
	sys.union(i, j)
}

func closestFree(p particle.Particle, x geom.Vec) int {
	best, bestDist := -1, math.Inf(+1)
	for k := 0; k < p.NodeCount(); k++ {
		n := p.Node(k)
		if !n.IsFree() {
			continue
		}
		if d := n.Position.Dist(x); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
