package mfbo

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Const, vars, types.
//////

// Smallest observation-noise variance the model will factorize with. Repeated
// or near-duplicate inputs make the kernel matrix singular without it.
const minNoiseVariance = 1e-6

// gaussianProcess implements a thread-safe exact Gaussian Process regression
// model for multidimensional inputs. In the multi-fidelity setting the input
// vectors are design points with the fidelity appended as the last
// coordinate, so a single model is fitted jointly over design and fidelity
// dimensions.
//
// Inference is the standard Cholesky formulation: the kernel matrix
// K + noise*I is factorized once per update, and posterior mean/variance at a
// query point are computed from the cached factorization and weight vector.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Slice of observed input points (each point is a slice of float64)
// - Y: Slice of observed objective values at each input point
// - lengthscale, signalVariance, noiseVariance: RBF kernel hyperparameters
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Uses RLock for read operations (Predict, LogMarginalLikelihood)
// - Uses Lock for write operations (Update, FitLengthscale)
//
// Memory usage:
// - O(n^2) for the cached Cholesky factorization
// - Each observation stores a copy of its input vector.
type gaussianProcess struct {
	// mu protects access to all fields
	mu sync.RWMutex

	// X stores the observed input points (design + fidelity coordinates).
	// Length of inner slices must be consistent.
	X [][]float64

	// Y stores the observed values at each point in X.
	// Must have same length as X.
	Y []float64

	// lengthscale is the RBF kernel width.
	// Larger values = smoother interpolation.
	lengthscale float64

	// signalVariance scales the kernel; set from the sample variance of Y
	// during fitting.
	signalVariance float64

	// noiseVariance is the observation noise added to the kernel diagonal.
	noiseVariance float64

	// meanY is the constant prior mean, set to the sample mean of Y.
	meanY float64

	// chol and alpha cache the factorization of K+noise*I and the weight
	// vector (K+noise*I)^-1 (Y-meanY). Rebuilt by refitLocked.
	chol  mat.Cholesky
	alpha *mat.VecDense
}

//////
// Methods.
//////

// RBFKernel implements the Radial Basis Function (Gaussian) kernel scaled by
// the signal variance. It measures the similarity between two points in the
// input space, decreasing exponentially with distance.
//
// Mathematical formula:
//
//	k(x1, x2) = signalVariance * exp(-||x1 - x2||^2 / (2 * lengthscale^2))
//
// Important notes:
// - Panics if input vectors have different lengths
// - Returns signalVariance for identical points
// - Thread-safe (uses read lock for hyperparameter access).
func (gp *gaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("mfbo: kernel input vectors must have the same length")
	}

	gp.mu.RLock()
	lengthscale := gp.lengthscale
	signalVariance := gp.signalVariance
	gp.mu.RUnlock()

	return rbf(x1, x2, lengthscale, signalVariance)
}

// rbf is the lock-free kernel used internally while gp.mu is already held.
func rbf(x1, x2 []float64, lengthscale, signalVariance float64) float64 {
	d := floats.Distance(x1, x2, 2)

	return signalVariance * math.Exp(-d*d/(2*lengthscale*lengthscale))
}

// Predict estimates the posterior mean and variance of the latent objective
// at a given input point based on previously observed data.
//
// Parameters:
// - x: Input point (design coordinates with fidelity appended)
//
// Returns:
// - mean: Posterior mean at the input point
// - variance: Posterior variance of the latent function (excludes noise)
//
// Usage example:
//
//	mean, variance := gp.Predict(point)
//	fmt.Printf("expected value: %v ± %v\n", mean, math.Sqrt(variance))
//
// Important notes:
// - Returns the prior (meanY, signalVariance) if no observations exist
// - Variance is floored at zero to absorb round-off from the solve
// - O(n) time for the mean, O(n^2) for the variance
// - Thread-safe (uses read lock).
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	n := len(gp.X)
	if n == 0 {
		return gp.meanY, gp.signalVariance
	}

	// Kernel vector between x and all observed points.
	k := mat.NewVecDense(n, nil)
	for i := range gp.X {
		k.SetVec(i, rbf(x, gp.X[i], gp.lengthscale, gp.signalVariance))
	}

	mean = gp.meanY + mat.Dot(k, gp.alpha)

	// variance = k(x,x) - k^T (K+noise*I)^-1 k
	v := mat.NewVecDense(n, nil)
	if err := gp.chol.SolveVecTo(v, k); err != nil {
		// Factorization is kept positive definite by refitLocked; a solve
		// failure here means the model was never fitted.
		return mean, gp.signalVariance
	}

	variance = gp.signalVariance - mat.Dot(k, v)
	if variance < 0 {
		variance = 0
	}

	return mean, variance
}

// Update adds a new observation to the model and refits the posterior.
//
// Parameters:
// - x: Input point (design coordinates with fidelity appended)
// - y: Observed objective value at x
//
// Important notes:
//   - Creates a deep copy of x to prevent external modifications
//   - Recomputes the Cholesky factorization, O(n^3) in the number of
//     observations; n stays small in Bayesian optimization budgets
//   - Thread-safe (uses write lock).
func (gp *gaussianProcess) Update(x []float64, y float64) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)

	return gp.refitLocked()
}

// Condition returns an independent copy of the model updated with a
// hypothetical observation y at x. The receiver is not modified. This is the
// fantasy-model primitive used by the knowledge gradient and by greedy batch
// selection.
func (gp *gaussianProcess) Condition(x []float64, y float64) (*gaussianProcess, error) {
	gp.mu.RLock()

	clone := &gaussianProcess{
		X:              make([][]float64, 0, len(gp.X)+1),
		Y:              make([]float64, 0, len(gp.Y)+1),
		lengthscale:    gp.lengthscale,
		signalVariance: gp.signalVariance,
		noiseVariance:  gp.noiseVariance,
	}

	for _, xi := range gp.X {
		ci := make([]float64, len(xi))
		copy(ci, xi)

		clone.X = append(clone.X, ci)
	}

	clone.Y = append(clone.Y, gp.Y...)

	gp.mu.RUnlock()

	if err := clone.Update(x, y); err != nil {
		return nil, err
	}

	return clone, nil
}

// LogMarginalLikelihood returns the log marginal likelihood of the observed
// data under the current hyperparameters. Used by FitLengthscale to compare
// candidate length-scales.
func (gp *gaussianProcess) LogMarginalLikelihood() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	n := len(gp.X)
	if n == 0 || gp.alpha == nil {
		return math.Inf(-1)
	}

	centered := mat.NewVecDense(n, nil)
	for i, y := range gp.Y {
		centered.SetVec(i, y-gp.meanY)
	}

	fit := -0.5 * mat.Dot(centered, gp.alpha)
	complexity := -0.5 * gp.chol.LogDet()
	norm := -0.5 * float64(n) * math.Log(2*math.Pi)

	return fit + complexity + norm
}

// FitLengthscale selects the kernel length-scale by scanning a candidate grid
// and keeping the value with the highest log marginal likelihood. The signal
// variance is set to the sample variance of the observations and the noise
// variance is left unchanged.
//
// This replaces gradient-based marginal-likelihood optimization: with the
// small observation counts typical of Bayesian optimization budgets, a coarse
// grid is both robust and cheap.
//
// Important notes:
// - No-op when fewer than two observations exist
// - Thread-safe (holds the write lock for the whole scan).
func (gp *gaussianProcess) FitLengthscale(grid []float64) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if len(gp.X) < 2 || len(grid) == 0 {
		return gp.refitLocked()
	}

	if v := stat.Variance(gp.Y, nil); v > minNoiseVariance {
		gp.signalVariance = v
	}

	bestLengthscale := gp.lengthscale
	bestLML := math.Inf(-1)

	for _, l := range grid {
		if l <= 0 {
			return fmt.Errorf("mfbo: length-scale grid value %v must be > 0", l)
		}

		gp.lengthscale = l

		if err := gp.refitLocked(); err != nil {
			continue
		}

		lml := gp.logMarginalLikelihoodLocked()
		if lml > bestLML {
			bestLML = lml
			bestLengthscale = l
		}
	}

	gp.lengthscale = bestLengthscale

	return gp.refitLocked()
}

// logMarginalLikelihoodLocked mirrors LogMarginalLikelihood for callers that
// already hold gp.mu.
func (gp *gaussianProcess) logMarginalLikelihoodLocked() float64 {
	n := len(gp.X)
	if n == 0 || gp.alpha == nil {
		return math.Inf(-1)
	}

	centered := mat.NewVecDense(n, nil)
	for i, y := range gp.Y {
		centered.SetVec(i, y-gp.meanY)
	}

	return -0.5*mat.Dot(centered, gp.alpha) - 0.5*gp.chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
}

// NoiseVariance returns the current observation-noise variance.
func (gp *gaussianProcess) NoiseVariance() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.noiseVariance
}

// Len returns the number of observations in the model.
func (gp *gaussianProcess) Len() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.X)
}

// refitLocked rebuilds the Cholesky factorization and weight vector from the
// current observations and hyperparameters. Caller must hold gp.mu.
//
// If the kernel matrix is not positive definite at the configured noise
// level, the diagonal jitter is grown a few times before giving up. This
// absorbs duplicate inputs and very short length-scales.
func (gp *gaussianProcess) refitLocked() error {
	n := len(gp.X)
	if n == 0 {
		gp.alpha = nil

		return nil
	}

	gp.meanY = stat.Mean(gp.Y, nil)

	jitter := gp.noiseVariance
	if jitter < minNoiseVariance {
		jitter = minNoiseVariance
	}

	for attempt := 0; attempt < 5; attempt++ {
		k := mat.NewSymDense(n, nil)

		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := rbf(gp.X[i], gp.X[j], gp.lengthscale, gp.signalVariance)
				if i == j {
					v += jitter
				}

				k.SetSym(i, j, v)
			}
		}

		if gp.chol.Factorize(k) {
			centered := mat.NewVecDense(n, nil)
			for i, y := range gp.Y {
				centered.SetVec(i, y-gp.meanY)
			}

			gp.alpha = mat.NewVecDense(n, nil)
			if err := gp.chol.SolveVecTo(gp.alpha, centered); err != nil {
				return fmt.Errorf("mfbo: solving GP weights: %w", err)
			}

			return nil
		}

		jitter *= 10
	}

	return fmt.Errorf("mfbo: kernel matrix not positive definite after jitter escalation (n=%d, lengthscale=%v)", n, gp.lengthscale)
}

//////
// Factory.
//////

// newGaussianProcess creates and initializes a new Gaussian Process model
// with default hyperparameters suitable for inputs on the unit box.
//
// Important notes:
//   - Initializes with lengthscale=0.5, signalVariance=1.0 (suitable for
//     normalized inputs; FitLengthscale refines both once data arrives)
//   - X and Y start empty (no observations)
//   - Thread-safe from creation.
func newGaussianProcess() *gaussianProcess {
	return &gaussianProcess{
		lengthscale:    0.5,
		signalVariance: 1.0,
		noiseVariance:  minNoiseVariance,
	}
}
