package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
)

// ErrInvalidConfig is returned for a malformed run configuration before any
// sampling work begins.
var ErrInvalidConfig = errors.New("invalid inference configuration")

// Config describes one posterior inference run.
type Config struct {
	Chains int    // number of independent chains, >= 1
	Warmup int    // warmup draws per chain, >= 0
	Draws  int    // retained draws per chain, >= 0
	Seed   uint64 // top-level seed; per-chain seeds derive from it
}

func (c Config) check() error {
	if c.Chains < 1 {
		return fmt.Errorf("chains=%d: %w", c.Chains, ErrInvalidConfig)
	}
	if c.Warmup < 0 || c.Draws < 0 {
		return fmt.Errorf("warmup=%d draws=%d: %w", c.Warmup, c.Draws, ErrInvalidConfig)
	}
	return nil
}

// ChainSeeds derives one seed per chain deterministically from the top-level
// seed, so identical runs produce identical chains.
func ChainSeeds(seed uint64, chains int) []uint64 {
	src := rand.NewSource(seed)
	seeds := make([]uint64, chains)
	for i := range seeds {
		seeds[i] = src.Uint64()
	}
	return seeds
}

// Run executes cfg.Chains independent chains of the sampler against the
// target, starting every chain at init. Chains share no mutable state and
// run in parallel; the target must be read-only. Sampler errors propagate
// unchanged, annotated with the failing chain.
func Run(ctx context.Context, sampler Sampler, target Target, init []float64, cfg Config) (*SampleSet, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if len(init) != target.Dim {
		return nil, fmt.Errorf("init has %d entries, target has %d: %w", len(init), target.Dim, ErrInvalidConfig)
	}

	seeds := ChainSeeds(cfg.Seed, cfg.Chains)
	chains := make([]Chain, cfg.Chains)
	errs := make([]error, cfg.Chains)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Chains; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			spec := ChainSpec{
				Index:  i,
				Seed:   seeds[i],
				Warmup: cfg.Warmup,
				Draws:  cfg.Draws,
				Init:   append([]float64(nil), init...),
			}
			chains[i], errs[i] = sampler.Sample(ctx, target, spec)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", i, err)
		}
	}
	return &SampleSet{Names: target.Names, Chains: chains}, nil
}
