package geom

import (
	"math"
)

// LineEps is the tolerance used when deciding whether two directions are
// parallel or a parameter lies on a segment boundary.
var LineEps = 1e-12

// Line is the infinite line through P with direction U.
type Line struct {
	P, U Vec
}

// NewLine returns the line through the points p1 and p2.
func NewLine(p1, p2 Vec) Line {
	if p1 == p2 {
		panic("Cannot make line between a point and itself.")
	}
	return Line{P: p1, U: p2.Sub(p1)}
}

// AreParallel returns true if l1 and l2 have parallel directions.
func AreParallel(l1, l2 Line) bool {
	cross := l1.U.Cross(l2.U)
	return math.Abs(cross) <= LineEps*l1.U.Norm()*l2.U.Norm()
}

// Solve returns the parameters t1 and t2 such that l1.P + t1 l1.U ==
// l2.P + t2 l2.U. ok is false for parallel lines.
func Solve(l1, l2 Line) (t1, t2 float64, ok bool) {
	if AreParallel(l1, l2) {
		return 0, 0, false
	}
	cross := l1.U.Cross(l2.U)
	d := l2.P.Sub(l1.P)
	return d.Cross(l2.U) / cross, d.Cross(l1.U) / cross, true
}

// At returns the point at parameter t.
func (l Line) At(t float64) Vec { return l.P.Add(l.U.Scale(t)) }

// Project returns the orthogonal projection of x onto l.
func (l Line) Project(x Vec) Vec {
	uu := l.U.Dot(l.U)
	if uu == 0 {
		return l.P
	}
	return l.At(x.Sub(l.P).Dot(l.U) / uu)
}

// RaySegment returns the distance along the ray origin + t dir (t >= 0) at
// which it crosses the segment [a, b]. dir need not be normalized; the
// returned distance is in units of dir.
func RaySegment(origin, dir, a, b Vec) (t float64, ok bool) {
	ray, seg := Line{origin, dir}, Line{a, b.Sub(a)}
	t, u, ok := Solve(ray, seg)
	if !ok || t < -LineEps || u < -LineEps || u > 1+LineEps {
		return 0, false
	}
	if t < 0 {
		t = 0
	}
	return t, true
}

// SegmentDistance returns the distance from x to the segment [a, b].
func SegmentDistance(x, a, b Vec) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return x.Dist(a)
	}
	t := x.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return x.Dist(a.Add(ab.Scale(t)))
}
