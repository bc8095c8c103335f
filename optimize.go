package mfbo

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"
)

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration sized for the bundled
// augmented Hartmann benchmark: a 6-D design space, the discrete fidelity set
// {0.5, 0.75, 1.0} with target 1.0, and an affine cost model with fixed cost
// 5.0 and fidelity weight 1.0.
func DefaultConfig() OptimizationConfig {
	return OptimizationConfig{
		Dimensions:      6,
		Iterations:      6,
		InitialSamples:  16,
		BatchSize:       4,
		NumCandidates:   64,
		Fantasies:       16,
		Discretization:  64,
		Fidelities:      []float64{0.5, 0.75, 1.0},
		TargetFidelity:  1.0,
		Cost:            AffineCostModel{Fixed: 5.0, Weight: 1.0},
		AcquisitionFunc: ExpectedImprovement,
		AcqParams: AcquisitionParams{
			BestSoFar: math.MaxFloat64,
			Beta:      2.0,
			Xi:        0.01,
		},
		RecommendRestarts: 5,
		ProgressChan:      nil, // Default to no progress updates.
	}
}

// SmokeConfig returns DefaultConfig with every count shrunk so a full
// multi-fidelity run plus baseline completes in seconds. Used by the demo
// command when the SMOKE_TEST environment variable is set, and by tests.
func SmokeConfig() OptimizationConfig {
	config := DefaultConfig()

	config.Iterations = 2
	config.InitialSamples = 6
	config.BatchSize = 2
	config.NumCandidates = 16
	config.Fantasies = 4
	config.Discretization = 16
	config.RecommendRestarts = 2

	return config
}

// OptimizeMultiFidelity runs cost-aware multi-fidelity Bayesian optimization
// of the objective.
//
// Parameters:
//   - config: OptimizationConfig controlling the optimization process
//   - objective: The function to minimize; it receives a design point in
//     [0,1]^Dimensions and a fidelity from config.Fidelities
//
// Returns:
//   - *Result: Recommendation, best observation, history, and cumulative cost
//   - error: Non-nil on invalid configuration, objective failure, or a model
//     fit failure
//
// How it works:
//
//  1. Evaluates InitialSamples random design points at random fidelities to
//     build the initial Gaussian Process model over design + fidelity
//
//  2. For each iteration:
//     - Refits the kernel length-scale by marginal likelihood
//     - Scores NumCandidates random design points at every fidelity with the
//     knowledge gradient divided by the evaluation cost
//     - Selects BatchSize points greedily, conditioning the model on the
//     posterior mean at each selected point before picking the next
//     - Evaluates the batch, updates the model and the cumulative cost
//
//  3. Optimizes the posterior mean at the target fidelity (multistart
//     Nelder-Mead) and returns the minimizer as the recommendation
//
// Important notes:
// - Thread-safe: Can be called concurrently with different configs
// - Reproducible: Set config.Seed for deterministic runs
// - The objective is only ever called with fidelities from config.Fidelities
//
// Usage example:
//
//	config := DefaultConfig()
//	config.Seed = 7
//
//	result, err := OptimizeMultiFidelity(config, func(x []float64, s float64) (float64, error) {
//	    point := append(append([]float64{}, x...), s)
//	    return AugmentedHartmann{}.Func(point), nil
//	})
func OptimizeMultiFidelity(config OptimizationConfig, objective ObjectiveFunc) (*Result, error) {
	state, err := newRunState(config, objective)
	if err != nil {
		return nil, err
	}

	// Phase 1: initial random design at random fidelities.
	//
	// Low-fidelity samples are included on purpose: they are cheap and the
	// joint model transfers what they reveal to the target fidelity.
	for i := 0; i < config.InitialSamples; i++ {
		x := randomUnitPoint(state.rng, config.Dimensions)
		fidelity := config.Fidelities[state.rng.Intn(len(config.Fidelities))]

		if err := state.evaluate(x, fidelity, "InitialSampling", i+1, config.InitialSamples); err != nil {
			return nil, err
		}
	}

	// Phase 2: cost-aware knowledge-gradient loop.
	for i := 0; i < config.Iterations; i++ {
		if err := state.gp.FitLengthscale(defaultLengthscaleGrid); err != nil {
			return nil, fmt.Errorf("mfbo: fitting surrogate at iteration %d: %w", i+1, err)
		}

		batch, fidelities, err := state.selectBatchKG()
		if err != nil {
			return nil, fmt.Errorf("mfbo: selecting candidates at iteration %d: %w", i+1, err)
		}

		for j := range batch {
			if err := state.evaluate(batch[j], fidelities[j], "Optimization", i+1, config.Iterations); err != nil {
				return nil, err
			}
		}
	}

	return state.finish()
}

// OptimizeSingleFidelity runs the single-fidelity baseline: the same loop
// driven by the configured pointwise acquisition function (Expected
// Improvement by default), with every evaluation at the target fidelity.
//
// The baseline pays config.Cost.Cost(TargetFidelity) per evaluation, so
// comparing Result.CumulativeCost against a multi-fidelity run on the same
// objective shows what the fidelity dimension buys.
//
// See OptimizeMultiFidelity for parameter and result semantics.
func OptimizeSingleFidelity(config OptimizationConfig, objective ObjectiveFunc) (*Result, error) {
	state, err := newRunState(config, objective)
	if err != nil {
		return nil, err
	}

	// Phase 1: initial random design, all at the target fidelity.
	for i := 0; i < config.InitialSamples; i++ {
		x := randomUnitPoint(state.rng, config.Dimensions)

		if err := state.evaluate(x, config.TargetFidelity, "InitialSampling", i+1, config.InitialSamples); err != nil {
			return nil, err
		}
	}

	// Phase 2: pointwise-acquisition loop.
	for i := 0; i < config.Iterations; i++ {
		if err := state.gp.FitLengthscale(defaultLengthscaleGrid); err != nil {
			return nil, fmt.Errorf("mfbo: fitting surrogate at iteration %d: %w", i+1, err)
		}

		batch, err := state.selectBatchPointwise()
		if err != nil {
			return nil, fmt.Errorf("mfbo: selecting candidates at iteration %d: %w", i+1, err)
		}

		for j := range batch {
			if err := state.evaluate(batch[j], config.TargetFidelity, "Optimization", i+1, config.Iterations); err != nil {
				return nil, err
			}
		}
	}

	return state.finish()
}

//////
// Run state.
//////

// runState carries everything a single optimization run accumulates: the
// surrogate model, the evaluation history, the running cost, and the best
// target-fidelity observation. Both loop variants share it.
type runState struct {
	config    OptimizationConfig
	objective ObjectiveFunc
	rng       *rand.Rand
	gp        *gaussianProcess

	history   History
	cost      float64
	bestValue float64
	bestPoint []float64
}

func newRunState(config OptimizationConfig, objective ObjectiveFunc) (*runState, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if objective == nil {
		return nil, fmt.Errorf("mfbo: objective must not be nil")
	}

	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	rng := rand.New(rand.NewSource(seed))

	if config.AcqParams.RandomState == nil {
		config.AcqParams.RandomState = rng
	}

	return &runState{
		config:    config,
		objective: objective,
		rng:       rng,
		gp:        newGaussianProcess(),
		bestValue: math.Inf(1),
	}, nil
}

// evaluate runs the objective at (x, fidelity), updates the model, the
// history, the cumulative cost, and the incumbent, and emits a progress
// update. Objective errors abort the run.
func (s *runState) evaluate(x []float64, fidelity float64, phase string, iteration, total int) error {
	y, err := s.objective(x, fidelity)
	if err != nil {
		return fmt.Errorf("mfbo: objective failed at fidelity %v: %w", fidelity, err)
	}

	if err := s.gp.Update(appendFidelity(x, fidelity), y); err != nil {
		return fmt.Errorf("mfbo: updating surrogate: %w", err)
	}

	s.history.Points = append(s.history.Points, cloneSlice(x))
	s.history.Fidelities = append(s.history.Fidelities, fidelity)
	s.history.Observations = append(s.history.Observations, y)

	s.cost += s.config.Cost.Cost(fidelity)

	if fidelity == s.config.TargetFidelity && y < s.bestValue {
		s.bestValue = y
		s.bestPoint = cloneSlice(x)
	}

	s.sendProgress(phase, iteration, total, x, fidelity, y)

	return nil
}

// sendProgress emits a non-blocking progress update if a channel is set.
func (s *runState) sendProgress(phase string, iteration, total int, x []float64, fidelity, y float64) {
	if s.config.ProgressChan == nil {
		return
	}

	update := ProgressUpdate{
		Phase:            phase,
		CurrentIteration: iteration,
		TotalIterations:  total,
		CurrentPoint:     cloneSlice(x),
		CurrentFidelity:  fidelity,
		LastObservation:  y,
		CurrentBestPoint: cloneSlice(s.bestPoint),
		CurrentBestValue: s.bestValue,
		CumulativeCost:   s.cost,
	}

	select {
	case s.config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}

// decisionSet builds the set of target-fidelity points the knowledge
// gradient measures the model's best decision over: Discretization random
// points plus every observed design point projected to the target fidelity.
func (s *runState) decisionSet() [][]float64 {
	set := make([][]float64, 0, s.config.Discretization+s.history.Len())

	for i := 0; i < s.config.Discretization; i++ {
		set = append(set, appendFidelity(randomUnitPoint(s.rng, s.config.Dimensions), s.config.TargetFidelity))
	}

	for _, p := range s.history.Points {
		set = append(set, appendFidelity(p, s.config.TargetFidelity))
	}

	return set
}

// selectBatchKG picks BatchSize (point, fidelity) pairs by maximizing the
// cost-weighted knowledge gradient over NumCandidates random design points
// crossed with every fidelity in the discrete set.
//
// Batch selection is greedy with believer conditioning: after a pair is
// selected, the working model is conditioned on its own posterior mean at
// that point. Posterior means are unchanged but the variance collapses, so
// the next pick is pushed away from already-selected points without spending
// a real evaluation.
func (s *runState) selectBatchKG() ([][]float64, []float64, error) {
	set := s.decisionSet()

	model := s.gp

	batch := make([][]float64, 0, s.config.BatchSize)
	fidelities := make([]float64, 0, s.config.BatchSize)

	for b := 0; b < s.config.BatchSize; b++ {
		var (
			bestX     []float64
			bestS     float64
			bestScore = math.Inf(-1)
		)

		for j := 0; j < s.config.NumCandidates; j++ {
			x := randomUnitPoint(s.rng, s.config.Dimensions)

			for _, fidelity := range s.config.Fidelities {
				kg, err := knowledgeGradient(model, appendFidelity(x, fidelity), set, s.config.Fantasies, s.rng)
				if err != nil {
					return nil, nil, err
				}

				score := kg / s.config.Cost.Cost(fidelity)

				if score > bestScore {
					bestScore = score
					bestX = x
					bestS = fidelity
				}
			}
		}

		batch = append(batch, bestX)
		fidelities = append(fidelities, bestS)

		if b+1 < s.config.BatchSize {
			point := appendFidelity(bestX, bestS)
			mean, _ := model.Predict(point)

			conditioned, err := model.Condition(point, mean)
			if err != nil {
				return nil, nil, err
			}

			model = conditioned
		}
	}

	return batch, fidelities, nil
}

// selectBatchPointwise picks BatchSize design points at the target fidelity
// by minimizing the configured pointwise acquisition function over
// NumCandidates random candidates, with the same believer conditioning as
// the knowledge-gradient path.
func (s *runState) selectBatchPointwise() ([][]float64, error) {
	params := s.config.AcqParams
	params.BestSoFar = s.bestValue

	model := s.gp

	batch := make([][]float64, 0, s.config.BatchSize)

	for b := 0; b < s.config.BatchSize; b++ {
		var (
			bestX           []float64
			bestAcquisition = math.Inf(1)
		)

		for j := 0; j < s.config.NumCandidates; j++ {
			x := randomUnitPoint(s.rng, s.config.Dimensions)

			mean, variance := model.Predict(appendFidelity(x, s.config.TargetFidelity))

			acquisition := s.config.AcquisitionFunc(mean, variance, params)

			if acquisition < bestAcquisition {
				bestAcquisition = acquisition
				bestX = x
			}
		}

		batch = append(batch, bestX)

		if b+1 < s.config.BatchSize {
			point := appendFidelity(bestX, s.config.TargetFidelity)
			mean, _ := model.Predict(point)

			conditioned, err := model.Condition(point, mean)
			if err != nil {
				return nil, err
			}

			model = conditioned
		}
	}

	return batch, nil
}

// finish refits the surrogate once more and produces the final Result with
// the posterior-mean recommendation.
func (s *runState) finish() (*Result, error) {
	if err := s.gp.FitLengthscale(defaultLengthscaleGrid); err != nil {
		return nil, fmt.Errorf("mfbo: final surrogate fit: %w", err)
	}

	recommended, recommendedMean, err := s.recommend()
	if err != nil {
		return nil, err
	}

	return &Result{
		Recommended:       recommended,
		RecommendedMean:   recommendedMean,
		BestObserved:      s.bestValue,
		BestObservedPoint: s.bestPoint,
		CumulativeCost:    s.cost,
		History:           s.history,
	}, nil
}

// recommend minimizes the posterior mean at the target fidelity with
// multistart Nelder-Mead. One start is the best observed target-fidelity
// point (when one exists); the rest are random. Iterates are clamped into
// the unit box before each model query, and the best clamped minimizer wins.
func (s *runState) recommend() ([]float64, float64, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			mean, _ := s.gp.Predict(appendFidelity(clampUnit(x), s.config.TargetFidelity))

			return mean
		},
	}

	starts := make([][]float64, 0, s.config.RecommendRestarts+1)

	if s.bestPoint != nil {
		starts = append(starts, cloneSlice(s.bestPoint))
	}

	for len(starts) < s.config.RecommendRestarts+1 {
		starts = append(starts, randomUnitPoint(s.rng, s.config.Dimensions))
	}

	var (
		bestX    []float64
		bestMean = math.Inf(1)
	)

	for _, x0 := range starts {
		result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
		if err != nil || result == nil {
			// A failed restart is not fatal; the remaining starts and the
			// observed-point fallback below still produce a recommendation.
			continue
		}

		clamped := clampUnit(result.X)

		mean, _ := s.gp.Predict(appendFidelity(clamped, s.config.TargetFidelity))
		if mean < bestMean {
			bestMean = mean
			bestX = clamped
		}
	}

	// Fallback: scan the observed design points at the target fidelity.
	for _, p := range s.history.Points {
		mean, _ := s.gp.Predict(appendFidelity(p, s.config.TargetFidelity))
		if mean < bestMean {
			bestMean = mean
			bestX = cloneSlice(p)
		}
	}

	if bestX == nil {
		return nil, 0, fmt.Errorf("mfbo: recommendation produced no candidate (empty history and all restarts failed)")
	}

	return bestX, bestMean, nil
}
