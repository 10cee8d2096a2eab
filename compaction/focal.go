package compaction

import (
	"fmt"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/particle"
)

// Focal moves every agglomerate towards a fixed focus point.
type Focal struct {
	Params
	Focus  geom.Vec
	Report Reporter
}

// Solve runs MaxStepCount steps, or fewer if nothing moves any more. In each
// step the agglomerates move in order of their first particle.
func (f *Focal) Solve(s *particle.SystemState) (*particle.SystemState, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	} else if s.ParticleCount() == 0 {
		return nil, fmt.Errorf("no particles to compact")
	}

	sys := newSystem(s, f.Params)
	for step := 0; step < f.MaxStepCount; step++ {
		moved := false
		for _, cluster := range sys.clusters() {
			// Merged into an earlier agglomerate during this step.
			if len(sys.members(cluster[0])) != len(cluster) {
				continue
			}
			to := f.Focus.Sub(sys.centroid(cluster))
			dist := to.Norm()
			if dist <= sys.tol {
				continue
			}
			if sys.move(cluster, to.Scale(1/dist), dist) > 0 {
				moved = true
			}
		}

		if f.Report != nil {
			if err := f.Report(sys.state()); err != nil {
				return nil, err
			}
		}
		if !moved {
			break
		}
	}
	return sys.state(), nil
}
