package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// DefaultMAPEvaluations bounds the MAP search budget when none is given.
const DefaultMAPEvaluations = 20000

// MAP locates a posterior mode by Nelder-Mead from x0. Out-of-support
// regions appear to the minimizer as +Inf, which the simplex reflects away
// from; this makes the search robust near the support boundary where
// gradient-based line searches stall. The result is used to center proposal
// distributions and to initialize chains.
func MAP(target Target, x0 []float64, maxEvals int) ([]float64, error) {
	if len(x0) != target.Dim {
		return nil, fmt.Errorf("x0 has %d entries, target has %d", len(x0), target.Dim)
	}
	if maxEvals <= 0 {
		maxEvals = DefaultMAPEvaluations
	}

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			lp, err := target.LogDensity(x)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.Inf(1)
			}
			if math.IsInf(lp, -1) {
				return math.Inf(1)
			}
			return -lp
		},
	}

	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	result, err := optimize.Minimize(problem, append([]float64(nil), x0...), settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, fmt.Errorf("mode search failed: %w", err)
	}
	if math.IsInf(result.F, 1) {
		return nil, fmt.Errorf("mode search never entered the posterior support")
	}
	return result.X, nil
}
