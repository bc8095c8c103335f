package mfbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHartmann6KnownMinimum(t *testing.T) {
	value := Hartmann6{}.Func(Hartmann6Minimizer)

	// The published minimum is -3.32237.
	assert.InDelta(t, Hartmann6Minimum, value, 1e-4)
}

func TestHartmann6WrongDimensionPanics(t *testing.T) {
	assert.Panics(t, func() {
		Hartmann6{}.Func([]float64{0.5, 0.5})
	})
}

func TestAugmentedHartmannMatchesHartmannAtFullFidelity(t *testing.T) {
	points := [][]float64{
		{0.2, 0.15, 0.47, 0.27, 0.31, 0.65},
		{0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
		{1.0, 1.0, 1.0, 1.0, 1.0, 1.0},
		{0.5, 0.1, 0.9, 0.3, 0.7, 0.2},
	}

	for _, x := range points {
		full := AugmentedHartmann{}.Func(appendFidelity(x, 1.0))

		assert.InDelta(t, Hartmann6{}.Func(x), full, 1e-12)
	}
}

func TestAugmentedHartmannLowFidelityIsBiasedUp(t *testing.T) {
	// Lower fidelity shrinks the first coefficient, so the (negative) first
	// term contributes less and the value cannot decrease.
	x := []float64{0.2, 0.15, 0.47, 0.27, 0.31, 0.65}

	full := AugmentedHartmann{}.Func(appendFidelity(x, 1.0))
	half := AugmentedHartmann{}.Func(appendFidelity(x, 0.5))

	assert.GreaterOrEqual(t, half, full)
}

func TestAugmentedHartmannWrongDimensionPanics(t *testing.T) {
	assert.Panics(t, func() {
		// Six coordinates, no fidelity appended.
		AugmentedHartmann{}.Func([]float64{0.2, 0.15, 0.47, 0.27, 0.31, 0.65})
	})
}
