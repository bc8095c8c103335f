package mfbo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hartmannObjective evaluates the augmented Hartmann benchmark the way a real
// multi-fidelity experiment would be wired in.
func hartmannObjective(x []float64, fidelity float64) (float64, error) {
	return AugmentedHartmann{}.Func(appendFidelity(x, fidelity)), nil
}

func TestOptimizeMultiFidelity(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 7

	result, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)

	// Recommendation lives in the design space, inside the unit box.
	require.Len(t, result.Recommended, config.Dimensions)
	for _, v := range result.Recommended {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	// Every evaluation is recorded and every fidelity comes from the set.
	assert.Equal(t, config.InitialSamples+config.Iterations*config.BatchSize, result.History.Len())
	for _, s := range result.History.Fidelities {
		assert.Contains(t, config.Fidelities, s)
	}

	// Cumulative cost must match the cost model applied to the history.
	var want float64
	for _, s := range result.History.Fidelities {
		want += config.Cost.Cost(s)
	}

	assert.InDelta(t, want, result.CumulativeCost, 1e-9)

	// The recommendation's posterior mean should not be absurd: Hartmann6
	// lives in [-3.33, 0].
	assert.False(t, math.IsNaN(result.RecommendedMean))
	assert.Less(t, result.RecommendedMean, 1.0)
}

func TestOptimizeMultiFidelityIsSeedDeterministic(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 99

	a, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)

	b, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)

	assert.Equal(t, a.History.Observations, b.History.Observations)
	assert.Equal(t, a.CumulativeCost, b.CumulativeCost)
	assert.Equal(t, a.Recommended, b.Recommended)
}

func TestOptimizeMultiFidelityProgressUpdates(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 3

	progressChan := make(chan ProgressUpdate, config.InitialSamples+config.Iterations*config.BatchSize)
	defer close(progressChan)

	config.ProgressChan = progressChan

	var counter int32

	// Start a goroutine to handle progress updates.
	go func() {
		for update := range progressChan {
			atomic.AddInt32(&counter, int32(update.CurrentIteration))
		}
	}()

	result, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)
	require.NotNil(t, result)

	// Ensure events were emitted.
	assert.Greater(t, atomic.LoadInt32(&counter), int32(0))
}

func TestOptimizeSingleFidelityStaysAtTarget(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 21

	result, err := OptimizeSingleFidelity(config, hartmannObjective)
	require.NoError(t, err)

	for _, s := range result.History.Fidelities {
		assert.Equal(t, config.TargetFidelity, s)
	}

	// With every evaluation at the target fidelity the incumbent is always
	// defined.
	assert.False(t, math.IsInf(result.BestObserved, 1))
	require.Len(t, result.BestObservedPoint, config.Dimensions)

	// Per-evaluation cost is flat at the target fidelity.
	want := float64(result.History.Len()) * config.Cost.Cost(config.TargetFidelity)

	assert.InDelta(t, want, result.CumulativeCost, 1e-9)
}

func TestOptimizeSingleFidelityAlternativeAcquisitions(t *testing.T) {
	for _, tt := range []struct {
		name string
		fn   AcquisitionFunc
	}{
		{"ucb", UCB},
		{"pi", ProbabilityOfImprovement},
		{"thompson", ThompsonSampling},
	} {
		t.Run(tt.name, func(t *testing.T) {
			config := SmokeConfig()
			config.Seed = 5
			config.AcquisitionFunc = tt.fn

			result, err := OptimizeSingleFidelity(config, hartmannObjective)
			require.NoError(t, err)

			assert.Equal(t, config.InitialSamples+config.Iterations*config.BatchSize, result.History.Len())
		})
	}
}

func TestOptimizeZeroIterationsRecommendsFromInitialDesign(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 13
	config.Iterations = 0

	result, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)

	assert.Equal(t, config.InitialSamples, result.History.Len())
	require.Len(t, result.Recommended, config.Dimensions)
}

func TestOptimizeObjectiveErrorAborts(t *testing.T) {
	config := SmokeConfig()
	config.Seed = 1

	boom := errors.New("instrument offline")

	var calls int32

	_, err := OptimizeMultiFidelity(config, func(x []float64, fidelity float64) (float64, error) {
		if atomic.AddInt32(&calls, 1) > 3 {
			return 0, boom
		}

		return hartmannObjective(x, fidelity)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestOptimizeRejectsInvalidConfig(t *testing.T) {
	config := SmokeConfig()
	config.Fidelities = nil

	_, err := OptimizeMultiFidelity(config, hartmannObjective)
	assert.Error(t, err)

	_, err = OptimizeSingleFidelity(config, hartmannObjective)
	assert.Error(t, err)
}

func TestOptimizeRejectsNilObjective(t *testing.T) {
	_, err := OptimizeMultiFidelity(SmokeConfig(), nil)
	assert.Error(t, err)
}

func TestMultiFidelityUsesCheaperEvaluationsThanBaseline(t *testing.T) {
	// Same evaluation count on both sides; the multi-fidelity run may spend
	// some of it at cheap fidelities, so it can never cost more.
	config := SmokeConfig()
	config.Seed = 77

	kg, err := OptimizeMultiFidelity(config, hartmannObjective)
	require.NoError(t, err)

	ei, err := OptimizeSingleFidelity(config, hartmannObjective)
	require.NoError(t, err)

	assert.Equal(t, kg.History.Len(), ei.History.Len())
	assert.LessOrEqual(t, kg.CumulativeCost, ei.CumulativeCost)
}
