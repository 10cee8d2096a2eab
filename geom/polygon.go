package geom

import (
	"math"
	"sort"
)

// Polygon is a closed contour. The last vertex connects back to the first.
type Polygon []Vec

// Edge returns the i-th edge of the polygon.
func (p Polygon) Edge(i int) (a, b Vec) {
	return p[i], p[(i+1)%len(p)]
}

// Contains returns true if x lies inside the polygon. Points exactly on the
// boundary may be reported either way.
func (p Polygon) Contains(x Vec) bool {
	in := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a[1] > x[1]) != (b[1] > x[1]) {
			xCross := (b[0]-a[0])*(x[1]-a[1])/(b[1]-a[1]) + a[0]
			if x[0] < xCross {
				in = !in
			}
		}
	}
	return in
}

// RayDistance returns the smallest distance t >= 0 at which the ray
// origin + t dir crosses the polygon boundary. dir must be a unit vector for
// t to be a length.
func (p Polygon) RayDistance(origin, dir Vec) (float64, bool) {
	best, found := math.Inf(+1), false
	for i := range p {
		a, b := p.Edge(i)
		if t, ok := RaySegment(origin, dir, a, b); ok && t < best {
			best, found = t, true
		}
	}
	return best, found
}

// Area returns the signed area: positive for counter-clockwise contours.
func (p Polygon) Area() float64 {
	sum := 0.0
	for i := range p {
		a, b := p.Edge(i)
		sum += a.Cross(b)
	}
	return sum / 2
}

// Perimeter returns the length of the contour.
func (p Polygon) Perimeter() float64 {
	sum := 0.0
	for i := range p {
		a, b := p.Edge(i)
		sum += a.Dist(b)
	}
	return sum
}

// Translate returns a copy of the polygon moved by d.
func (p Polygon) Translate(d Vec) Polygon {
	out := make(Polygon, len(p))
	for i := range p {
		out[i] = p[i].Add(d)
	}
	return out
}

// ConvexHull returns the convex hull of pts in counter-clockwise order using
// the monotone chain algorithm. Collinear points are dropped.
func ConvexHull(pts []Vec) Polygon {
	if len(pts) < 3 {
		return append(Polygon{}, pts...)
	}
	sorted := append([]Vec{}, pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	hull := make(Polygon, 0, 2*len(sorted))
	turn := func(o, a, b Vec) float64 { return a.Sub(o).Cross(b.Sub(o)) }
	for _, v := range sorted {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		v := sorted[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	return hull[:len(hull)-1]
}
