package mfbo

import (
	"golang.org/x/exp/rand"
)

//////
// Helper functions.
//////

// defaultLengthscaleGrid is the candidate grid scanned by the length-scale
// fit on every refit of the surrogate. Inputs live on the unit box, so the
// useful range is well below the box diagonal.
var defaultLengthscaleGrid = []float64{0.1, 0.2, 0.35, 0.5, 0.75, 1.0, 1.5}

// appendFidelity returns a fresh slice holding the design point with the
// fidelity appended as its last coordinate, the input layout expected by the
// surrogate model and the benchmark functions.
//
// The input slice is never modified or aliased.
func appendFidelity(x []float64, fidelity float64) []float64 {
	point := make([]float64, len(x)+1)
	copy(point, x)
	point[len(x)] = fidelity

	return point
}

// randomUnitPoint draws a uniform random point in the unit box [0,1]^dim.
func randomUnitPoint(rng *rand.Rand, dim int) []float64 {
	x := make([]float64, dim)
	for i := range x {
		x[i] = rng.Float64()
	}

	return x
}

// clampUnit returns a copy of x with every coordinate clamped into [0,1].
// Used to keep Nelder-Mead iterates of the recommendation step inside the
// design domain.
func clampUnit(x []float64) []float64 {
	c := make([]float64, len(x))

	for i, v := range x {
		switch {
		case v < 0:
			c[i] = 0
		case v > 1:
			c[i] = 1
		default:
			c[i] = v
		}
	}

	return c
}

// cloneSlice returns an independent copy of a float64 slice.
func cloneSlice(x []float64) []float64 {
	c := make([]float64, len(x))
	copy(c, x)

	return c
}
