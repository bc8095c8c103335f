package mfbo

import "math"

//////
// Synthetic benchmark functions.
//
// These follow the layout of gonum's optimize/functions test suite: each
// benchmark is a stateless struct with a Func method that panics on a wrong
// input dimension. They are used by the demo command and the tests; real
// applications supply their own ObjectiveFunc.
//////

// Hartmann 6-D constants, shared by Hartmann6 and AugmentedHartmann.
var (
	hartmannAlpha = [4]float64{1.0, 1.2, 3.0, 3.2}

	hartmannA = [4][6]float64{
		{10, 3, 17, 3.5, 1.7, 8},
		{0.05, 10, 17, 0.1, 8, 14},
		{3, 3.5, 1.7, 10, 17, 8},
		{17, 8, 0.05, 10, 0.1, 14},
	}

	hartmannP = [4][6]float64{
		{0.1312, 0.1696, 0.5569, 0.0124, 0.8283, 0.5886},
		{0.2329, 0.4135, 0.8307, 0.3736, 0.1004, 0.9991},
		{0.2348, 0.1451, 0.3522, 0.2883, 0.3047, 0.6650},
		{0.4047, 0.8828, 0.8732, 0.5743, 0.1091, 0.0381},
	}
)

// Hartmann6Minimum is the global minimum value of Hartmann6 on [0,1]^6.
const Hartmann6Minimum = -3.32237

// Hartmann6Minimizer is the location of the global minimum of Hartmann6.
var Hartmann6Minimizer = []float64{0.20169, 0.150011, 0.476874, 0.275332, 0.311652, 0.6573}

// Hartmann6 implements the six-dimensional Hartmann function, a standard
// multimodal minimization benchmark on the unit box [0,1]^6 with six local
// minima and a global minimum of -3.32237.
//
// References:
//   - Dixon, L.C.W., Szegö, G.P.: The global optimization problem: an
//     introduction. Towards Global Optimization 2 (1978), 1-15
type Hartmann6 struct{}

// Func evaluates Hartmann6 at x. It panics if x is not six-dimensional.
func (Hartmann6) Func(x []float64) float64 {
	if len(x) != 6 {
		panic("mfbo: Hartmann6 input must be 6-dimensional")
	}

	var sum float64

	for i := 0; i < 4; i++ {
		var inner float64

		for j := 0; j < 6; j++ {
			d := x[j] - hartmannP[i][j]

			inner += hartmannA[i][j] * d * d
		}

		sum -= hartmannAlpha[i] * math.Exp(-inner)
	}

	return sum
}

// AugmentedHartmann implements the multi-fidelity augmentation of Hartmann6.
// The input is seven-dimensional: six design coordinates in [0,1] followed by
// a fidelity coordinate s in (0,1]. The first Hartmann coefficient is degraded
// by 0.1*(1-s), so lower fidelities yield a biased measurement of the true
// objective while AugmentedHartmann at s=1 equals Hartmann6 exactly.
type AugmentedHartmann struct{}

// Func evaluates the augmented Hartmann function at x, where x[6] is the
// fidelity. It panics if x is not seven-dimensional.
func (AugmentedHartmann) Func(x []float64) float64 {
	if len(x) != 7 {
		panic("mfbo: AugmentedHartmann input must be 7-dimensional (6 design + fidelity)")
	}

	s := x[6]

	var sum float64

	for i := 0; i < 4; i++ {
		var inner float64

		for j := 0; j < 6; j++ {
			d := x[j] - hartmannP[i][j]

			inner += hartmannA[i][j] * d * d
		}

		alpha := hartmannAlpha[i]
		if i == 0 {
			alpha -= 0.1 * (1 - s)
		}

		sum -= alpha * math.Exp(-inner)
	}

	return sum
}
