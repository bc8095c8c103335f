package mfbo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffineCostModel(t *testing.T) {
	cost := AffineCostModel{Fixed: 5.0, Weight: 1.0}

	assert.Equal(t, 6.0, cost.Cost(1.0))
	assert.Equal(t, 5.5, cost.Cost(0.5))
	assert.Equal(t, 5.75, cost.Cost(0.75))

	// Full fidelity is always the most expensive under a positive weight.
	assert.Greater(t, cost.Cost(1.0), cost.Cost(0.5))
}

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, SmokeConfig().Validate())
}

func TestSmokeConfigIsSmaller(t *testing.T) {
	full := DefaultConfig()
	smoke := SmokeConfig()

	assert.Less(t, smoke.Iterations, full.Iterations)
	assert.Less(t, smoke.InitialSamples, full.InitialSamples)
	assert.Less(t, smoke.NumCandidates, full.NumCandidates)
	assert.Less(t, smoke.Fantasies, full.Fantasies)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OptimizationConfig)
	}{
		{"zero dimensions", func(c *OptimizationConfig) { c.Dimensions = 0 }},
		{"zero initial samples", func(c *OptimizationConfig) { c.InitialSamples = 0 }},
		{"negative iterations", func(c *OptimizationConfig) { c.Iterations = -1 }},
		{"zero batch size", func(c *OptimizationConfig) { c.BatchSize = 0 }},
		{"zero candidates", func(c *OptimizationConfig) { c.NumCandidates = 0 }},
		{"zero fantasies", func(c *OptimizationConfig) { c.Fantasies = 0 }},
		{"zero discretization", func(c *OptimizationConfig) { c.Discretization = 0 }},
		{"empty fidelities", func(c *OptimizationConfig) { c.Fidelities = nil }},
		{"fidelity above one", func(c *OptimizationConfig) { c.Fidelities = []float64{0.5, 1.5} }},
		{"fidelity zero", func(c *OptimizationConfig) { c.Fidelities = []float64{0.0, 1.0} }},
		{"target not in set", func(c *OptimizationConfig) { c.TargetFidelity = 0.9 }},
		{"free cost", func(c *OptimizationConfig) { c.Cost.Fixed = 0 }},
		{"zero restarts", func(c *OptimizationConfig) { c.RecommendRestarts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			assert.Error(t, config.Validate())
		})
	}
}

func TestAppendFidelityDoesNotAliasInput(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3}

	point := appendFidelity(x, 0.75)

	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.75}, point)

	point[0] = 9.0

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, x)
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, clampUnit([]float64{-0.2, 0.5, 1.7}))
}
