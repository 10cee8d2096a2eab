package compaction

import (
	"fmt"
	"sort"

	"github.com/phil-mansfield/gosinter/particle"
)

// OneByOne grows an agglomerate from the first particle. The remaining
// particles, nearest first, are nudged towards the agglomerate's centroid
// until they join it.
type OneByOne struct {
	Params
	Report Reporter
}

// Solve returns ErrNotConverged if MaxStepCount steps are not enough to join
// every particle.
func (o *OneByOne) Solve(s *particle.SystemState) (*particle.SystemState, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	} else if s.ParticleCount() == 0 {
		return nil, fmt.Errorf("no particles to compact")
	}

	sys := newSystem(s, o.Params)
	seed := sys.ps[0].Center()
	order := make([]int, 0, len(sys.ps)-1)
	for i := 1; i < len(sys.ps); i++ {
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sys.ps[order[a]].Center().Dist(seed) <
			sys.ps[order[b]].Center().Dist(seed)
	})

	steps := 0
	for _, i := range order {
		for sys.find(i) != sys.find(0) {
			if steps >= o.MaxStepCount {
				return nil, fmt.Errorf("%w: %d of %d particles joined after "+
					"%d steps", ErrNotConverged, len(sys.members(0)),
					len(sys.ps), steps)
			}

			cluster := sys.members(i)
			to := sys.centroid(sys.members(0)).Sub(sys.centroid(cluster))
			dist := to.Norm()
			if dist <= sys.tol {
				return nil, fmt.Errorf("%w: particle %d sits on the "+
					"agglomerate centroid without touching it",
					ErrNotConverged, i)
			}
			sys.move(cluster, to.Scale(1/dist), dist)
			steps++

			if o.Report != nil {
				if err := o.Report(sys.state()); err != nil {
					return nil, err
				}
			}
		}
	}
	return sys.state(), nil
}
