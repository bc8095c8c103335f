package mfbo

import (
	"fmt"

	"golang.org/x/exp/rand"
)

//////
// Const, vars, types.
//////

// ProgressUpdate represents the current state of the optimization process.
type ProgressUpdate struct {
	// Phase indicates whether we're in initial sampling or optimization phase
	Phase string

	// CurrentIteration is the current iteration number
	CurrentIteration int

	// TotalIterations is the total number of iterations to run
	TotalIterations int

	// CurrentPoint holds the design point evaluated last
	CurrentPoint []float64

	// CurrentFidelity holds the fidelity the last point was evaluated at
	CurrentFidelity float64

	// LastObservation holds the objective value of the last evaluation
	LastObservation float64

	// CurrentBestPoint holds the best design point observed so far at the
	// target fidelity
	CurrentBestPoint []float64

	// CurrentBestValue holds the best objective value observed so far at the
	// target fidelity
	CurrentBestValue float64

	// CumulativeCost holds the total evaluation cost spent so far
	CumulativeCost float64
}

// ObjectiveFunc defines the signature for functions to be optimized.
// This function type represents the expensive experiment whose optimum you
// want to find.
//
// Parameters:
//   - x: Design point, one value per design dimension, each in [0, 1]
//   - fidelity: The fidelity the experiment should run at, in (0, 1].
//     Lower fidelities are expected to be cheaper, less accurate
//     approximations of the objective at fidelity 1.0
//
// Returns:
// - float64: The observed objective value (lower is better)
// - error: Return nil if the evaluation succeeded, or an error if it failed
//
// Usage example:
//
//	objective := func(x []float64, fidelity float64) (float64, error) {
//	    result, err := runSimulation(x, meshResolution(fidelity))
//	    if err != nil {
//	        return 0, fmt.Errorf("simulation failed: %w", err)
//	    }
//
//	    return result.Loss, nil
//	}
//
// Errors returned by the objective abort the optimization run and are
// propagated to the caller.
type ObjectiveFunc func(x []float64, fidelity float64) (float64, error)

// AcquisitionFunc defines the signature for pointwise acquisition functions
// used by the single-fidelity baseline loop. These functions help decide
// which points in the design space should be evaluated next.
//
// Parameters:
// - mean: The predicted mean objective at a point (lower is better)
// - variance: The predicted variance/uncertainty at that point
// - params: Additional parameters needed by specific acquisition functions
//
// Returns:
// - float64: Acquisition value (lower values indicate more promising points)
//
// Built-in acquisition functions:
// - UCB: Upper Confidence Bound
// - ProbabilityOfImprovement: Probability of finding better value
// - ExpectedImprovement: Expected magnitude of improvement
// - ThompsonSampling: Random sampling from posterior
//
// The multi-fidelity loop does not use this type: the knowledge gradient is
// not a pointwise score and is computed against the surrogate model directly.
//
// Implementation notes for custom acquisition functions:
// - Should handle edge cases (zero variance, extreme means)
// - Must be thread-safe
// - Should return lower values for more promising points
// - Must properly use parameters from AcquisitionParams.
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by different acquisition functions
// to make decisions about which points to sample next. Each acquisition
// function may use different parameters to balance between exploring new
// areas (exploration) and focusing on areas known to be good (exploitation).
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off in the Upper
	// Confidence Bound (UCB) acquisition function.
	// - Higher values (e.g., 3.0 or 5.0) encourage more exploration
	// - Lower values (e.g., 0.1 or 0.5) focus more on exploiting known areas
	// Typical values range from 0.1 to 5.0, with 2.0 being a good default.
	Beta float64

	// Xi (Greek letter ξ) is an exploration parameter used in Probability of
	// Improvement (PI) and Expected Improvement (EI). It controls how much
	// improvement we want over the current best observation.
	// Typical values range from 0.01 to 0.1.
	Xi float64

	// BestSoFar keeps track of the best (lowest) objective value observed so
	// far. It is updated automatically by the optimization loop; callers only
	// need to initialize it (DefaultConfig sets math.MaxFloat64).
	BestSoFar float64

	// RandomState is the random number generator used by Thompson Sampling.
	// The optimization loop seeds it from OptimizationConfig.Seed; it only
	// needs to be set explicitly when calling acquisition functions directly.
	RandomState *rand.Rand
}

// AffineCostModel describes the cost of evaluating the objective at a given
// fidelity as an affine function of the fidelity value:
//
//	cost(x, s) = Fixed + Weight*s
//
// The fixed part models per-experiment overhead (setup, scheduling) that is
// paid regardless of fidelity; the weighted part models the resources that
// scale with fidelity (mesh resolution, sample count, training epochs).
//
// Invariant: Fixed must be positive, otherwise the inverse-cost weighting of
// the knowledge gradient is unbounded as s approaches zero.
type AffineCostModel struct {
	// Fixed is the fidelity-independent part of the evaluation cost.
	Fixed float64

	// Weight scales the fidelity-dependent part of the evaluation cost.
	Weight float64
}

// Cost returns the cost of a single evaluation at the given fidelity.
func (c AffineCostModel) Cost(fidelity float64) float64 {
	return c.Fixed + c.Weight*fidelity
}

// OptimizationConfig holds all configuration parameters for the multi-fidelity
// Bayesian optimization process. It controls the size of the initial design,
// the per-iteration budget, the fidelity set, and the acquisition machinery.
//
// Usage example:
//
//	config := OptimizationConfig{
//	    Dimensions:     6,
//	    Iterations:     6,
//	    InitialSamples: 16,
//	    BatchSize:      4,
//	    NumCandidates:  128,
//	    Fantasies:      32,
//	    Discretization: 64,
//	    Fidelities:     []float64{0.5, 0.75, 1.0},
//	    TargetFidelity: 1.0,
//	    Cost:           AffineCostModel{Fixed: 5.0, Weight: 1.0},
//	    ...
//	}
//
// Performance impact notes:
// - Higher Iterations = Better results but more objective evaluations
// - Higher NumCandidates = Better acquisition search but slower iterations
// - Higher Fantasies = Less Monte-Carlo noise in the KG but slower scoring
//
// Note:
// - Create separate configs for parallel optimizations.
type OptimizationConfig struct {
	// Dimensions is the number of design dimensions (not counting the
	// fidelity coordinate). Design points live in the unit box [0,1]^Dimensions.
	Dimensions int

	// Iterations determines how many optimization steps to perform after the
	// initial sampling phase. Each iteration evaluates BatchSize points.
	Iterations int

	// InitialSamples determines how many random points to evaluate, at random
	// fidelities, before starting the optimization. These samples build the
	// initial Gaussian Process model.
	InitialSamples int

	// BatchSize is the number of candidate points selected and evaluated per
	// iteration. Candidates beyond the first are chosen greedily after
	// conditioning the model on the posterior mean at the already-selected
	// points.
	BatchSize int

	// NumCandidates determines how many random candidate design points are
	// scored per fidelity in each acquisition round.
	NumCandidates int

	// Fantasies is the number of posterior samples drawn per candidate when
	// estimating the knowledge gradient.
	Fantasies int

	// Discretization is the size of the random decision set over which the
	// knowledge gradient measures the model's best posterior mean at the
	// target fidelity.
	Discretization int

	// Fidelities is the discrete set of fidelities candidates may be
	// evaluated at. Values must lie in (0, 1].
	Fidelities []float64

	// TargetFidelity is the fidelity the final recommendation is made at.
	// It must be a member of Fidelities.
	TargetFidelity float64

	// Cost models the per-evaluation cost as a function of fidelity.
	Cost AffineCostModel

	// AcquisitionFunc determines the strategy used by the single-fidelity
	// baseline loop. See AcquisitionFunc type for built-in options. The
	// multi-fidelity loop always uses the cost-weighted knowledge gradient.
	AcquisitionFunc AcquisitionFunc

	// AcqParams holds the parameters for the acquisition function.
	AcqParams AcquisitionParams

	// RecommendRestarts is the number of Nelder-Mead starts used when
	// optimizing the posterior mean for the final recommendation.
	RecommendRestarts int

	// Seed seeds the single random source driving the run: the initial
	// design, candidate generation, fantasy draws, and restart locations.
	Seed uint64

	// ProgressChan is used to send progress updates during optimization.
	// If nil, no updates will be sent.
	ProgressChan chan<- ProgressUpdate
}

// Validate checks the configuration for values the optimization loop cannot
// work with. It is called by the loop entry points before any evaluation.
func (c OptimizationConfig) Validate() error {
	if c.Dimensions < 1 {
		return fmt.Errorf("mfbo: Dimensions must be >= 1, got %d", c.Dimensions)
	}

	if c.InitialSamples < 1 {
		return fmt.Errorf("mfbo: InitialSamples must be >= 1, got %d", c.InitialSamples)
	}

	if c.Iterations < 0 {
		return fmt.Errorf("mfbo: Iterations must be >= 0, got %d", c.Iterations)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("mfbo: BatchSize must be >= 1, got %d", c.BatchSize)
	}

	if c.NumCandidates < 1 {
		return fmt.Errorf("mfbo: NumCandidates must be >= 1, got %d", c.NumCandidates)
	}

	if c.Fantasies < 1 {
		return fmt.Errorf("mfbo: Fantasies must be >= 1, got %d", c.Fantasies)
	}

	if c.Discretization < 1 {
		return fmt.Errorf("mfbo: Discretization must be >= 1, got %d", c.Discretization)
	}

	if len(c.Fidelities) == 0 {
		return fmt.Errorf("mfbo: Fidelities must not be empty")
	}

	targetInSet := false

	for _, s := range c.Fidelities {
		if s <= 0 || s > 1 {
			return fmt.Errorf("mfbo: fidelity %v outside (0, 1]", s)
		}

		if s == c.TargetFidelity {
			targetInSet = true
		}
	}

	if !targetInSet {
		return fmt.Errorf("mfbo: TargetFidelity %v not in Fidelities %v", c.TargetFidelity, c.Fidelities)
	}

	if c.Cost.Fixed <= 0 {
		return fmt.Errorf("mfbo: Cost.Fixed must be > 0, got %v", c.Cost.Fixed)
	}

	if c.RecommendRestarts < 1 {
		return fmt.Errorf("mfbo: RecommendRestarts must be >= 1, got %d", c.RecommendRestarts)
	}

	return nil
}

// History records every evaluation made during an optimization run, in
// evaluation order. Points, Fidelities, and Observations are parallel slices.
type History struct {
	// Points holds the evaluated design points (without fidelity coordinate).
	Points [][]float64

	// Fidelities holds the fidelity each point was evaluated at.
	Fidelities []float64

	// Observations holds the objective value observed at each point.
	Observations []float64
}

// Len returns the number of recorded evaluations.
func (h History) Len() int { return len(h.Observations) }

// Result holds the outcome of an optimization run.
type Result struct {
	// Recommended is the design point obtained by optimizing the posterior
	// mean at the target fidelity after the evaluation budget was spent.
	Recommended []float64

	// RecommendedMean is the posterior mean at the recommended point,
	// evaluated at the target fidelity.
	RecommendedMean float64

	// BestObserved is the lowest objective value observed at the target
	// fidelity during the run, or +Inf if no target-fidelity evaluation
	// happened.
	BestObserved float64

	// BestObservedPoint is the design point that produced BestObserved.
	BestObservedPoint []float64

	// CumulativeCost is the total evaluation cost spent, according to the
	// configured cost model.
	CumulativeCost float64

	// History records every evaluation made during the run.
	History History
}
