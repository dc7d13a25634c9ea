package inference

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// DefaultProposals is the per-chain proposal budget used when none is set.
const DefaultProposals = 4096

// DefaultSpreadFloor is the smallest per-dimension proposal standard
// deviation used when no spread is configured.
const DefaultSpreadFloor = 0.05

// ImportanceSampler is a gradient-free, deterministic-by-seed sampler: it
// draws Gaussian proposals around a center point, weights them by the target
// density, and resamples the retained draws from the self-normalized
// weights. It is a coarse posterior search, not a trajectory sampler; it
// serves as the in-tree default and as the validation stub for the full
// pipeline, with HMC/NUTS implementations plugging into the same Sampler
// interface.
type ImportanceSampler struct {
	// Proposals is the number of proposal evaluations per chain.
	// DefaultProposals when zero.
	Proposals int
	// Spread is the per-dimension proposal standard deviation. A single
	// entry applies to every dimension. When nil the spread defaults to
	// 10% of the center magnitude with a floor of DefaultSpreadFloor.
	Spread []float64
	// Center overrides the proposal center; the chain's init point is used
	// when nil.
	Center []float64
}

// resolveSpread expands the configured spread to one entry per dimension,
// or derives a center-relative default when none is set.
func (s *ImportanceSampler) resolveSpread(center []float64) ([]float64, error) {
	dim := len(center)
	out := make([]float64, dim)
	switch len(s.Spread) {
	case 0:
		for j, c := range center {
			out[j] = math.Max(DefaultSpreadFloor, 0.1*math.Abs(c))
		}
	case 1:
		for j := range out {
			out[j] = s.Spread[0]
		}
	case dim:
		copy(out, s.Spread)
	default:
		return nil, fmt.Errorf("spread has %d entries, target has %d", len(s.Spread), dim)
	}
	for j, sp := range out {
		if !(sp > 0) {
			return nil, fmt.Errorf("non-positive spread %v in dimension %d", sp, j)
		}
	}
	return out, nil
}

// Sample draws spec.Draws posterior samples. Warmup adds to the proposal
// budget; importance sampling has no adaptation phase to spend it on.
func (s *ImportanceSampler) Sample(ctx context.Context, target Target, spec ChainSpec) (Chain, error) {
	center := s.Center
	if center == nil {
		center = spec.Init
	}
	if len(center) != target.Dim {
		return Chain{}, fmt.Errorf("proposal center has %d entries, target has %d", len(center), target.Dim)
	}
	spread, err := s.resolveSpread(center)
	if err != nil {
		return Chain{}, err
	}

	proposals := s.Proposals
	if proposals <= 0 {
		proposals = DefaultProposals
	}
	proposals += spec.Warmup

	rng := rand.New(rand.NewSource(spec.Seed))
	points := make([][]float64, proposals)
	logp := make([]float64, proposals)
	logw := make([]float64, proposals)
	maxLogw := math.Inf(-1)
	for i := 0; i < proposals; i++ {
		select {
		case <-ctx.Done():
			return Chain{}, ctx.Err()
		default:
		}
		theta := make([]float64, target.Dim)
		var logq float64
		for j := range theta {
			z := rng.NormFloat64()
			theta[j] = center[j] + spread[j]*z
			logq += -0.5*z*z - math.Log(spread[j])
		}
		lp, err := target.LogDensity(theta)
		if err != nil {
			return Chain{}, err
		}
		points[i] = theta
		logp[i] = lp
		logw[i] = lp - logq // importance weight p/q, up to constants
		if logw[i] > maxLogw {
			maxLogw = logw[i]
		}
	}
	if math.IsInf(maxLogw, -1) {
		return Chain{}, fmt.Errorf("all %d proposals fell outside the posterior support", proposals)
	}

	// self-normalized weights
	weights := make([]float64, proposals)
	var total float64
	for i, lw := range logw {
		w := math.Exp(lw - maxLogw)
		weights[i] = w
		total += w
	}

	// systematic resampling keeps the draw count exact and the variance low
	out := Chain{
		Draws:      make([][]float64, 0, spec.Draws),
		LogDensity: make([]float64, 0, spec.Draws),
	}
	if spec.Draws == 0 {
		return out, nil
	}
	step := total / float64(spec.Draws)
	u := rng.Float64() * step
	var cum float64
	i := 0
	for len(out.Draws) < spec.Draws {
		for cum+weights[i] < u && i < proposals-1 {
			cum += weights[i]
			i++
		}
		draw := append([]float64(nil), points[i]...)
		out.Draws = append(out.Draws, draw)
		out.LogDensity = append(out.LogDensity, logp[i])
		u += step
	}
	return out, nil
}
