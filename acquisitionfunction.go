package mfbo

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Available acquisition functions for Bayesian optimization.
// Each function helps decide which points to evaluate next by balancing
// exploration (trying new areas) and exploitation (focusing on known good
// areas). All pointwise functions follow the minimization convention: lower
// acquisition values indicate more promising points.
//////

// UCB implements the Upper Confidence Bound acquisition function.
//
// How it works:
//   - Combines the predicted mean with the uncertainty (variance)
//   - Lower values are better (we're minimizing the objective)
//   - The Beta parameter controls the trade-off between exploration and
//     exploitation
//
// Parameters:
// - mean: Predicted objective at this point
// - variance: Uncertainty in the prediction
// - params.Beta: Exploration weight (higher = more exploration)
//
// When to use:
// - General purpose, works well in most cases
// - When you want direct control over exploration-exploitation trade-off
//
// Example:
//
//	params := AcquisitionParams{
//	    Beta: 2.0,  // Balance between exploration and exploitation
//	}
//	value := UCB(0.5, 0.2, params)
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement (PI) calculates the probability that a point will
// improve upon the current best observed value.
//
// How it works:
// - Estimates the probability of observing a value below the current best
// - Uses the Gaussian posterior at the point
// - Xi parameter adds a minimum improvement requirement
//
// Parameters:
// - mean: Predicted objective at this point
// - variance: Uncertainty in the prediction
// - params.BestSoFar: Best value observed so far
// - params.Xi: Minimum improvement desired
//
// When to use:
// - When you want to be conservative in exploring new points
// - When being "probably better" matters more than "how much better"
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: 1.0,
//	    Xi: 0.01,
//	}
//	value := ProbabilityOfImprovement(0.9, 0.2, params)
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(variance)
	if sigma < 1e-12 {
		if mean < params.BestSoFar-params.Xi {
			return -1
		}

		return 0
	}

	z := (params.BestSoFar - params.Xi - mean) / sigma

	// Negated so that lower values indicate more promising points.
	return -distuv.UnitNormal.CDF(z)
}

// ExpectedImprovement (EI) calculates the expected magnitude of improvement
// over the current best value.
//
// How it works:
// - Combines the probability of improvement with its magnitude
// - Balances how likely and how large the improvement might be
// - Often provides better exploration than PI
//
// Parameters:
// - mean: Predicted objective at this point
// - variance: Uncertainty in the prediction
// - params.BestSoFar: Best value observed so far
// - params.Xi: Minimum improvement desired
//
// When to use:
//   - Most commonly used acquisition function
//   - When you want to balance the size and probability of improvement
//   - This is the single-fidelity baseline the multi-fidelity loop is
//     compared against
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: 1.0,
//	    Xi: 0.01,
//	}
//	value := ExpectedImprovement(0.9, 0.2, params)
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(variance)
	improvement := params.BestSoFar - params.Xi - mean

	if sigma < 1e-12 {
		if improvement > 0 {
			return -improvement
		}

		return 0
	}

	z := improvement / sigma
	ei := improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)

	// Negated so that lower values indicate more promising points.
	return -ei
}

// ThompsonSampling implements Thompson Sampling acquisition by drawing random
// samples from the posterior distribution.
//
// How it works:
// - Takes random samples from our belief about the function's behavior
// - Naturally balances exploration and exploitation
//
// Parameters:
// - mean: Predicted objective at this point
// - variance: Uncertainty in the prediction
// - params.RandomState: Random number generator (required!)
//
// When to use:
// - When you want a simple but effective approach
// - When you want to avoid tuning Beta or Xi
//
// Warning:
// - Always initialize RandomState before using this function
// - Don't share RandomState between different optimization runs.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.RandomState.NormFloat64()
}

//////
// Knowledge gradient.
//
// The knowledge gradient is not a pointwise score: it measures how much a
// hypothetical observation at the candidate would improve the model's best
// decision at the target fidelity, so it needs the surrogate model, a
// decision set, and fantasy sampling. The optimization loop divides it by the
// candidate's evaluation cost to obtain the cost-aware multi-fidelity score.
//////

// minPosteriorMean returns the lowest posterior mean over the decision set
// together with the index of the point achieving it.
func minPosteriorMean(gp *gaussianProcess, decisionSet [][]float64) (float64, int) {
	best := math.Inf(1)
	bestIdx := -1

	for i, p := range decisionSet {
		mean, _ := gp.Predict(p)
		if mean < best {
			best = mean
			bestIdx = i
		}
	}

	return best, bestIdx
}

// knowledgeGradient estimates the expected decrease of the minimum posterior
// mean over the decision set after a hypothetical observation at the
// candidate point.
//
// Parameters:
//   - gp: The surrogate model
//   - candidate: Full input point (design coordinates with fidelity appended)
//   - decisionSet: Points at the target fidelity over which the best decision
//     is measured
//   - fantasies: Number of posterior samples to average over
//   - rng: Random source for fantasy draws
//
// Returns:
//   - float64: The knowledge-gradient value; non-negative (Monte-Carlo noise
//     is clamped at zero)
//   - error: Non-nil if a fantasy model could not be fitted
//
// How it works:
//  1. Record the current minimum posterior mean over the decision set
//  2. Draw fantasy observations from the posterior predictive at the
//     candidate (latent variance plus observation noise)
//  3. For each fantasy, condition a copy of the model on it and re-measure
//     the minimum posterior mean over the decision set
//  4. Average the decrease across fantasies
//
// Because the decision set sits at the target fidelity while the candidate
// may sit at a lower one, this value captures how much a cheap low-fidelity
// observation teaches the model about the expensive decision it ultimately
// has to make.
func knowledgeGradient(
	gp *gaussianProcess,
	candidate []float64,
	decisionSet [][]float64,
	fantasies int,
	rng *rand.Rand,
) (float64, error) {
	baseline, _ := minPosteriorMean(gp, decisionSet)

	mean, variance := gp.Predict(candidate)

	std := math.Sqrt(variance + gp.NoiseVariance())
	if std < 1e-12 {
		// The model is already certain about this point; observing it
		// cannot move the decision.
		return 0, nil
	}

	posterior := distuv.Normal{Mu: mean, Sigma: std, Src: rng}

	var sum float64

	for i := 0; i < fantasies; i++ {
		fantasy, err := gp.Condition(candidate, posterior.Rand())
		if err != nil {
			return 0, err
		}

		fantasyBest, _ := minPosteriorMean(fantasy, decisionSet)

		sum += baseline - fantasyBest
	}

	kg := sum / float64(fantasies)
	if kg < 0 {
		kg = 0
	}

	return kg, nil
}
