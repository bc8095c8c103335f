package mfbo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// trainTestModel fits a small model on a 1-D slice of the input space so the
// posterior behavior is easy to reason about.
func trainTestModel(t *testing.T) *gaussianProcess {
	t.Helper()

	gp := newGaussianProcess()

	for _, obs := range []struct {
		x []float64
		y float64
	}{
		{[]float64{0.0, 1.0}, 1.0},
		{[]float64{0.25, 1.0}, 0.2},
		{[]float64{0.5, 1.0}, -0.5},
		{[]float64{0.75, 1.0}, 0.1},
		{[]float64{1.0, 1.0}, 0.9},
	} {
		require.NoError(t, gp.Update(obs.x, obs.y))
	}

	return gp
}

func TestGaussianProcessPriorBeforeData(t *testing.T) {
	gp := newGaussianProcess()

	mean, variance := gp.Predict([]float64{0.5, 1.0})

	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)
}

func TestGaussianProcessInterpolatesObservations(t *testing.T) {
	gp := trainTestModel(t)

	// With near-zero observation noise the posterior mean must pass close to
	// every training target, with tiny posterior variance.
	mean, variance := gp.Predict([]float64{0.5, 1.0})

	assert.InDelta(t, -0.5, mean, 0.05)
	assert.Less(t, variance, 0.05)
}

func TestGaussianProcessVarianceGrowsAwayFromData(t *testing.T) {
	gp := trainTestModel(t)

	_, nearVariance := gp.Predict([]float64{0.5, 1.0})
	_, farVariance := gp.Predict([]float64{0.5, 0.0})

	assert.Greater(t, farVariance, nearVariance)
}

func TestGaussianProcessKernelBounds(t *testing.T) {
	gp := newGaussianProcess()

	same := gp.RBFKernel([]float64{0.3, 0.7}, []float64{0.3, 0.7})
	far := gp.RBFKernel([]float64{0.0, 0.0}, []float64{1.0, 1.0})

	assert.InDelta(t, 1.0, same, 1e-12) // signalVariance defaults to 1
	assert.Greater(t, same, far)
	assert.Greater(t, far, 0.0)
}

func TestGaussianProcessKernelDimensionMismatchPanics(t *testing.T) {
	gp := newGaussianProcess()

	assert.Panics(t, func() {
		gp.RBFKernel([]float64{0.1}, []float64{0.1, 0.2})
	})
}

func TestGaussianProcessConditionLeavesReceiverUntouched(t *testing.T) {
	gp := trainTestModel(t)

	beforeMean, beforeVariance := gp.Predict([]float64{0.1, 0.5})

	fantasy, err := gp.Condition([]float64{0.1, 0.5}, -2.0)
	require.NoError(t, err)

	afterMean, afterVariance := gp.Predict([]float64{0.1, 0.5})

	assert.Equal(t, beforeMean, afterMean)
	assert.Equal(t, beforeVariance, afterVariance)
	assert.Equal(t, gp.Len()+1, fantasy.Len())

	// The fantasy model must have absorbed the hypothetical observation.
	fantasyMean, fantasyVariance := fantasy.Predict([]float64{0.1, 0.5})

	assert.InDelta(t, -2.0, fantasyMean, 0.05)
	assert.Less(t, fantasyVariance, beforeVariance)
}

func TestGaussianProcessFitLengthscalePicksFromGrid(t *testing.T) {
	gp := trainTestModel(t)

	require.NoError(t, gp.FitLengthscale(defaultLengthscaleGrid))

	assert.Contains(t, defaultLengthscaleGrid, gp.lengthscale)
	assert.False(t, math.IsInf(gp.LogMarginalLikelihood(), 0))
}

func TestGaussianProcessFitLengthscaleRejectsNonPositive(t *testing.T) {
	gp := trainTestModel(t)

	assert.Error(t, gp.FitLengthscale([]float64{0.5, -1.0}))
}

func TestGaussianProcessSurvivesDuplicateInputs(t *testing.T) {
	gp := newGaussianProcess()

	// Identical inputs with different targets make the kernel matrix
	// singular without the diagonal jitter.
	require.NoError(t, gp.Update([]float64{0.5, 1.0}, 1.0))
	require.NoError(t, gp.Update([]float64{0.5, 1.0}, 1.2))
	require.NoError(t, gp.Update([]float64{0.5, 1.0}, 0.8))

	mean, variance := gp.Predict([]float64{0.5, 1.0})

	assert.InDelta(t, 1.0, mean, 0.1)
	assert.GreaterOrEqual(t, variance, 0.0)
}

func TestGaussianProcessUpdateCopiesInput(t *testing.T) {
	gp := newGaussianProcess()

	x := []float64{0.2, 0.8}
	require.NoError(t, gp.Update(x, 0.5))

	before, _ := gp.Predict([]float64{0.2, 0.8})

	// Mutating the caller's slice must not disturb the model.
	x[0] = 0.9

	after, _ := gp.Predict([]float64{0.2, 0.8})

	assert.Equal(t, before, after)
}

func TestGaussianProcessJointFidelityTransfer(t *testing.T) {
	// Observations at low fidelity should inform predictions at the target
	// fidelity nearby, since the model is joint over design and fidelity.
	gp := newGaussianProcess()

	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10; i++ {
		x := rng.Float64()

		// Smooth objective, fidelity shifts it slightly.
		require.NoError(t, gp.Update([]float64{x, 0.5}, x*x+0.1))
	}

	require.NoError(t, gp.FitLengthscale(defaultLengthscaleGrid))

	_, varianceAtTarget := gp.Predict([]float64{0.5, 1.0})

	// Still uncertain at the target fidelity, but below the prior: the
	// low-fidelity data carries over.
	assert.Less(t, varianceAtTarget, gp.signalVariance)
}
