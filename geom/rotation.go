package geom

import (
	. "math"
)

// RotationMatrix is a 2x2 rotation matrix stored in row-major order.
type RotationMatrix [4]float64

// NewRotationMatrix creates the matrix which rotates vectors
// counter-clockwise by the angle phi.
func NewRotationMatrix(phi float64) RotationMatrix {
	c, s := Cos(phi), Sin(phi)
	return RotationMatrix{c, -s, s, c}
}

// Apply rotates a vector by the given rotation matrix.
func (m RotationMatrix) Apply(v Vec) Vec {
	return Vec{m[0]*v[0] + m[1]*v[1], m[2]*v[0] + m[3]*v[1]}
}

// Rotate rotates v counter-clockwise by phi around the origin.
func (v Vec) Rotate(phi float64) Vec {
	return NewRotationMatrix(phi).Apply(v)
}

// RotateAround rotates v counter-clockwise by phi around the point c.
func (v Vec) RotateAround(c Vec, phi float64) Vec {
	return v.Sub(c).Rotate(phi).Add(c)
}

// NormalizeAngle maps phi into [0, 2 pi).
func NormalizeAngle(phi float64) float64 {
	phi = Mod(phi, 2*Pi)
	if phi < 0 {
		phi += 2 * Pi
	}
	return phi
}
