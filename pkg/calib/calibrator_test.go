package calib

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/amunozj/ellery/internal/dataset"
	"github.com/amunozj/ellery/internal/inference"
	"github.com/amunozj/ellery/internal/synthetic"
)

func TestNewRejectsBadPeriod(t *testing.T) {
	_, err := New(0, Options{})
	assert.Error(t, err)
	_, err = New(-3, Options{})
	assert.Error(t, err)
}

func TestFitNeedsTwoRecords(t *testing.T) {
	c, err := New(11, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Ingest(dataset.Record{
		Name:   "only",
		Times:  []float64{0, 1, 2},
		Values: []float64{1, 2, 3},
		Errs:   []float64{0.1, 0.1, 0.1},
	}))

	_, err = c.Fit(context.Background(), &inference.ImportanceSampler{}, inference.Config{
		Chains: 1, Draws: 10, Seed: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 records")
}

func TestIngestRejectsBadRecord(t *testing.T) {
	c, err := New(11, Options{})
	require.NoError(t, err)
	err = c.Ingest(dataset.Record{
		Name:   "bad",
		Times:  []float64{0, 1},
		Values: []float64{1},
		Errs:   []float64{0.1},
	})
	assert.Error(t, err)
}

// The headline end-to-end check: generate records from known scales, fit,
// and verify the recovered scales track the truth.
func TestScaleRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full calibration run in short mode")
	}

	cfg := synthetic.DefaultConfig()
	truth, records, err := synthetic.Generate(cfg, 42)
	require.NoError(t, err)
	require.Len(t, records, cfg.Records)

	c, err := New(cfg.Period, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Ingest(records...))

	sampler := &inference.ImportanceSampler{Proposals: 8192}
	res, err := c.Fit(context.Background(), sampler, inference.Config{
		Chains: 2,
		Warmup: 0,
		Draws:  500,
		Seed:   7,
	})
	require.NoError(t, err)

	require.Len(t, res.Scales, cfg.Records)
	assert.Equal(t, 1.0, res.Scales[0], "reference record stays anchored")
	assert.Equal(t, 0.0, res.ScaleStdDev[0])

	// recovered scales should correlate strongly with the generating ones
	r := stat.Correlation(res.Scales, truth.Scales, nil)
	assert.Greater(t, r, 0.9, "scale correlation %.3f too low", r)

	// the common mean should land within a few posterior standard deviations
	n := cfg.Records
	muSD := res.Samples.PosteriorStdDev()[n]
	assert.InDelta(t, truth.Mu, res.Mu, math.Max(2*muSD, 0.5))

	assert.Greater(t, res.S0, 0.0)
	assert.Greater(t, res.NoiseScale, 0.0)
}

func TestResultPredictSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full calibration run in short mode")
	}

	cfg := synthetic.DefaultConfig()
	cfg.Records = 4
	_, records, err := synthetic.Generate(cfg, 3)
	require.NoError(t, err)

	c, err := New(cfg.Period, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Ingest(records...))

	res, err := c.Fit(context.Background(), &inference.ImportanceSampler{Proposals: 4096}, inference.Config{
		Chains: 1, Draws: 200, Seed: 11,
	})
	require.NoError(t, err)

	query := []float64{0, cfg.Span / 2, cfg.Span}
	mean, variance, err := res.PredictSignal(query)
	require.NoError(t, err)
	require.Len(t, mean, len(query))
	require.Len(t, variance, len(query))
	for i := range query {
		assert.False(t, math.IsNaN(mean[i]))
		assert.Greater(t, variance[i], 0.0)
	}
}
