// Package inference drives posterior sampling: it derives per-chain seeds
// from one top-level seed, runs independent chains against an immutable
// target, and packages the draws into a sample set with posterior summaries.
// The trajectory construction itself belongs to the Sampler implementation.
package inference

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// Target is the posterior a sampler explores. LogDensity returns -Inf for
// out-of-support parameters (a rejection, not an error); a non-nil error is
// a genuine numerical fault and must propagate.
type Target struct {
	Dim        int
	Names      []string
	LogDensity func(theta []float64) (float64, error)
}

// Gradient fills grad with a central finite-difference gradient of the log
// density at theta. Numerical faults and out-of-support evaluations enter
// the stencil as -Inf, which gradient-based samplers treat as a divergent
// region. Offered so gradient-based samplers can consume a target whose
// density has no analytic derivative wired up.
func (t Target) Gradient(grad, theta []float64) []float64 {
	f := func(x []float64) float64 {
		lp, err := t.LogDensity(x)
		if err != nil {
			return math.Inf(-1)
		}
		return lp
	}
	if grad == nil {
		grad = make([]float64, len(theta))
	}
	return fd.Gradient(grad, f, theta, nil)
}

// ChainSpec describes one chain's independent execution: its index, derived
// seed, draw counts and starting point.
type ChainSpec struct {
	Index  int
	Seed   uint64
	Warmup int
	Draws  int
	Init   []float64
}

// Chain holds one chain's draws in generation order with their log
// densities.
type Chain struct {
	Draws      [][]float64
	LogDensity []float64
}

// Sampler turns a target and a chain spec into correlated posterior draws.
// Implementations must be deterministic given the chain seed.
type Sampler interface {
	Sample(ctx context.Context, target Target, spec ChainSpec) (Chain, error)
}
