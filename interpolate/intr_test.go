package interpolate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplineKnots(t *testing.T) {
	xs := []float64{0, 1, 1.5, 2, 3, 4, 5}
	ys := []float64{2, 1, 1, 0, 2, 3, 1}

	sp, err := NewSpline(xs, ys)
	require.NoError(t, err)
	for i := range xs {
		if y := sp.Eval(xs[i]); math.Abs(y-ys[i]) > 1e-12 {
			t.Errorf("%d) Eval(%g) = %g, expected %g.", i+1, xs[i], y, ys[i])
		}
	}
}

func TestSplineLinear(t *testing.T) {
	xs := []float64{5, 4, 3, 2, 1}
	ys := make([]float64, len(xs))
	for i := range xs {
		ys[i] = 3*xs[i] - 1
	}

	sp, err := NewSpline(xs, ys)
	require.NoError(t, err)
	for x := 1.0; x <= 5; x += 0.25 {
		assert.InDelta(t, 3*x-1, sp.Eval(x), 1e-12)
	}
}

func TestSplineSmooth(t *testing.T) {
	n := 40
	xs, ys := make([]float64, n), make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * math.Pi / float64(n-1)
		ys[i] = math.Sin(xs[i])
	}

	sp, err := NewSpline(xs, ys)
	require.NoError(t, err)
	for x := 0.1; x < math.Pi-0.1; x += 0.1 {
		assert.InDelta(t, math.Sin(x), sp.Eval(x), 1e-4)
	}
}

func TestSplineErrors(t *testing.T) {
	table := []struct {
		xs, ys []float64
	}{
		{[]float64{0, 1}, []float64{0}},
		{[]float64{0}, []float64{0}},
		{[]float64{0, 2, 1}, []float64{0, 0, 0}},
		{[]float64{0, 1, 1}, []float64{0, 0, 0}},
	}

	for i, test := range table {
		if _, err := NewSpline(test.xs, test.ys); err == nil {
			t.Errorf("%d) Expected an error for xs = %v.", i+1, test.xs)
		}
	}
}

func TestSolveTridiagonal(t *testing.T) {
	lower := []float64{0, 1, 1}
	diag := []float64{2, 2, 2}
	upper := []float64{1, 1, 0}
	rhs := []float64{3, 4, 3}

	us, err := SolveTridiagonal(lower, diag, upper, rhs)
	require.NoError(t, err)
	for i, u := range us {
		assert.InDelta(t, 1, u, 1e-12, "%d) Wrong solution component.", i+1)
	}

	_, err = SolveTridiagonal(lower, []float64{0, 2, 2}, upper, rhs)
	assert.ErrorIs(t, err, ErrSingular)
	_, err = SolveTridiagonal(lower, diag[:2], upper, rhs)
	assert.Error(t, err)
}
