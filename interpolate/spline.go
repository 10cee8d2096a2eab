/*package interpolate contains the natural cubic spline used to place new
contour nodes between existing ones.
*/
package interpolate

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnsorted = errors.New("spline table is not sorted")
	ErrSingular = errors.New("tridiagonal system is singular")
)

// Spline is a natural cubic spline through a table of knots. Its second
// derivative vanishes at both ends of the table.
type Spline struct {
	// Knots in increasing order of x.
	xs, ys []float64
	// Second derivative at every knot.
	curv []float64
}

// NewSpline creates a spline through the points (xs[i], ys[i]). xs must be
// strictly increasing or strictly decreasing. The tables are copied.
func NewSpline(xs, ys []float64) (*Spline, error) {
	n := len(xs)
	if n != len(ys) {
		return nil, fmt.Errorf("spline table has %d x values but %d y values",
			n, len(ys))
	} else if n < 2 {
		return nil, fmt.Errorf("spline table needs two knots, but has %d", n)
	}

	sp := &Spline{
		xs: make([]float64, n), ys: make([]float64, n),
		curv: make([]float64, n),
	}
	decreasing := xs[1] < xs[0]
	for i := range xs {
		j := i
		if decreasing {
			j = n - 1 - i
		}
		sp.xs[j], sp.ys[j] = xs[i], ys[i]
	}
	for i := 1; i < n; i++ {
		if !(sp.xs[i] > sp.xs[i-1]) {
			return nil, ErrUnsorted
		}
	}

	if n > 2 {
		if err := sp.fitCurvature(); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

// Eval returns the spline at x. Points outside the table are extrapolated
// with the polynomial of the nearest interval.
func (sp *Spline) Eval(x float64) float64 {
	i := sp.interval(x)
	x0, x1 := sp.xs[i], sp.xs[i+1]
	h := x1 - x0

	a := (x1 - x) / h
	b := 1 - a
	return a*sp.ys[i] + b*sp.ys[i+1] +
		((a*a*a-a)*sp.curv[i]+(b*b*b-b)*sp.curv[i+1])*h*h/6
}

// interval returns i such that xs[i] <= x < xs[i+1], clamped to the table.
func (sp *Spline) interval(x float64) int {
	i := sort.SearchFloat64s(sp.xs, x) - 1
	if i < 0 {
		return 0
	} else if i > len(sp.xs)-2 {
		return len(sp.xs) - 2
	}
	return i
}

// fitCurvature solves for the second derivatives at the inner knots.
func (sp *Spline) fitCurvature() error {
	n := len(sp.xs)
	lower, diag := make([]float64, n-2), make([]float64, n-2)
	upper, rhs := make([]float64, n-2), make([]float64, n-2)

	for k := 1; k < n-1; k++ {
		hl, hr := sp.xs[k]-sp.xs[k-1], sp.xs[k+1]-sp.xs[k]
		lower[k-1] = hl / 6
		diag[k-1] = (hl + hr) / 3
		upper[k-1] = hr / 6
		rhs[k-1] = (sp.ys[k+1]-sp.ys[k])/hr - (sp.ys[k]-sp.ys[k-1])/hl
	}

	inner, err := SolveTridiagonal(lower, diag, upper, rhs)
	if err != nil {
		return err
	}
	copy(sp.curv[1:n-1], inner)
	return nil
}

// SolveTridiagonal solves M u = rhs for the tridiagonal matrix M with
// M[i][i-1] = lower[i], M[i][i] = diag[i] and M[i][i+1] = upper[i]. lower[0]
// and upper[n-1] are ignored.
func SolveTridiagonal(lower, diag, upper, rhs []float64) ([]float64, error) {
	n := len(diag)
	if len(lower) != n || len(upper) != n || len(rhs) != n {
		return nil, fmt.Errorf("tridiagonal system has bands of lengths "+
			"%d, %d and %d and %d right hand sides",
			len(lower), n, len(upper), len(rhs))
	} else if n == 0 {
		return nil, nil
	}

	// Forward elimination into an upper bidiagonal system.
	factor := make([]float64, n)
	u := make([]float64, n)
	pivot := diag[0]
	for i := 0; i < n; i++ {
		if i > 0 {
			factor[i] = upper[i-1] / pivot
			pivot = diag[i] - lower[i]*factor[i]
		}
		if pivot == 0 {
			return nil, ErrSingular
		}
		if i == 0 {
			u[0] = rhs[0] / pivot
		} else {
			u[i] = (rhs[i] - lower[i]*u[i-1]) / pivot
		}
	}

	for i := n - 2; i >= 0; i-- {
		u[i] -= factor[i+1] * u[i+1]
	}
	return u, nil
}
