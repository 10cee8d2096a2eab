/*package geom contains the planar geometry used to describe particle contours:
vectors, rotations, line intersections, polygons and convex hulls.
*/
package geom

import (
	"math"
)

// Vec is a point or displacement in the plane.
type Vec [2]float64

// Polar returns the vector with length r pointing at angle phi.
func Polar(r, phi float64) Vec {
	return Vec{r * math.Cos(phi), r * math.Sin(phi)}
}

func (v Vec) Add(u Vec) Vec       { return Vec{v[0] + u[0], v[1] + u[1]} }
func (v Vec) Sub(u Vec) Vec       { return Vec{v[0] - u[0], v[1] - u[1]} }
func (v Vec) Scale(a float64) Vec { return Vec{v[0] * a, v[1] * a} }
func (v Vec) Dot(u Vec) float64   { return v[0]*u[0] + v[1]*u[1] }

// Cross returns the z component of the 3D cross product v x u.
func (v Vec) Cross(u Vec) float64 { return v[0]*u[1] - v[1]*u[0] }

func (v Vec) Norm() float64 { return math.Hypot(v[0], v[1]) }

func (v Vec) Dist(u Vec) float64 { return v.Sub(u).Norm() }

// Angle returns the polar angle of v in (-pi, pi].
func (v Vec) Angle() float64 { return math.Atan2(v[1], v[0]) }

// Unit returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec) Unit() Vec {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return Vec{v[0] / n, v[1] / n}
}

// Perp returns v rotated counter-clockwise by a quarter turn.
func (v Vec) Perp() Vec { return Vec{-v[1], v[0]} }

// IsFinite returns false if either component is NaN or infinite.
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v[0]) && !math.IsNaN(v[1]) &&
		!math.IsInf(v[0], 0) && !math.IsInf(v[1], 0)
}

// Mean returns the centroid of a set of points.
func Mean(vs []Vec) Vec {
	if len(vs) == 0 {
		return Vec{}
	}
	sum := Vec{}
	for _, v := range vs {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(vs)))
}
