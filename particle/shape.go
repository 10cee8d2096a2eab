package particle

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/phil-mansfield/gosinter/geom"
)

// ShapeFunction describes a particle contour: an ellipse with cosine peaks
// superimposed on its radius.
//
//	r(phi) = a b / sqrt((b cos phi)^2 + (a sin phi)^2) *
//	         (1 + h cos(n phi + 2 pi p))
//
// with a = R (1 + o) and b = R (1 - o).
type ShapeFunction struct {
	Center     geom.Vec
	Rotation   float64
	Radius     float64
	Ovality    float64
	PeakCount  int
	PeakHeight float64
	PeakShift  float64
	NodeCount  int
}

// Validate checks that the shape describes a closed, non-degenerate contour.
func (sf ShapeFunction) Validate() error {
	switch {
	case !(sf.Radius > 0):
		return fmt.Errorf("radius must be positive, but is %g", sf.Radius)
	case sf.Ovality < 0 || sf.Ovality >= 1:
		return fmt.Errorf("ovality must be in [0, 1), but is %g", sf.Ovality)
	case sf.PeakHeight < 0 || sf.PeakHeight >= 1:
		return fmt.Errorf("peak height must be in [0, 1), but is %g",
			sf.PeakHeight)
	case sf.PeakCount < 0:
		return fmt.Errorf("peak count must be non-negative, but is %d",
			sf.PeakCount)
	case sf.NodeCount < 3:
		return fmt.Errorf("node count must be at least 3, but is %d",
			sf.NodeCount)
	}
	return nil
}

// RadiusAt returns the contour radius at the angle phi, measured in the
// particle's own frame.
func (sf ShapeFunction) RadiusAt(phi float64) float64 {
	a := sf.Radius * (1 + sf.Ovality)
	b := sf.Radius * (1 - sf.Ovality)
	bc, as := b*math.Cos(phi), a*math.Sin(phi)
	ellipse := a * b / math.Sqrt(bc*bc+as*as)
	peaks := 1 + sf.PeakHeight*
		math.Cos(float64(sf.PeakCount)*phi+2*math.Pi*sf.PeakShift)
	return ellipse * peaks
}

// Particle generates the particle. Node ids are derived from the particle
// id so that the same inputs always produce the same particle.
func (sf ShapeFunction) Particle(id, material uuid.UUID) (Particle, error) {
	if err := sf.Validate(); err != nil {
		return Particle{}, err
	}

	nodes := make([]Node, sf.NodeCount)
	for i := range nodes {
		phi := 2 * math.Pi * float64(i) / float64(sf.NodeCount)
		r := sf.RadiusAt(phi)
		nodes[i] = Node{
			ID:       uuid.NewSHA1(id, []byte(strconv.Itoa(i))),
			Type:     Surface,
			Position: geom.Polar(r, phi+sf.Rotation).Add(sf.Center),
		}
	}
	return New(id, material, sf.Center, sf.Rotation, nodes), nil
}
