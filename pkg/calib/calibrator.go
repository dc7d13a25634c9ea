// Package calib is the public entry point for cross-calibrating a set of
// overlapping records of one quasi-periodic signal.
package calib

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amunozj/ellery/internal/dataset"
	"github.com/amunozj/ellery/internal/inference"
	"github.com/amunozj/ellery/internal/kernel"
	"github.com/amunozj/ellery/internal/model"
)

// Calibrator accumulates records and fits the joint calibration model.
type Calibrator struct {
	records *dataset.RecordSet
	period  float64
	q       float64
	priors  model.Priors
	logger  *zap.Logger
}

// Options tune the calibration model. Zero values fall back to defaults.
type Options struct {
	Q      float64      // oscillator quality factor
	Priors model.Priors // prior configuration
	Logger *zap.Logger
}

// Result summarizes a finished calibration run.
type Result struct {
	RecordNames []string
	// Scales holds one multiplicative factor per record, in ingest order.
	// The first record anchors the common scale at exactly 1.
	Scales      []float64
	ScaleStdDev []float64
	S0          float64
	Mu          float64
	NoiseScale  float64
	Samples     *inference.SampleSet

	model *model.Calibration
	mean  []float64
}

// New builds a calibrator for a signal with the given known period.
func New(period float64, opts Options) (*Calibrator, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %v", period)
	}
	q := opts.Q
	if q == 0 {
		q = kernel.DefaultQ
	}
	priors := opts.Priors
	if priors == (model.Priors{}) {
		priors = model.DefaultPriors()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calibrator{
		records: dataset.NewRecordSet(),
		period:  period,
		q:       q,
		priors:  priors,
		logger:  logger,
	}, nil
}

// Ingest validates and stores records. The first ingested record becomes
// the scale anchor.
func (c *Calibrator) Ingest(recs ...dataset.Record) error {
	return c.records.Ingest(recs...)
}

// NumRecords returns the number of ingested records.
func (c *Calibrator) NumRecords() int {
	return c.records.NumRecords()
}

// Fit merges the ingested records, locates the posterior mode and draws
// posterior samples with the given sampler.
func (c *Calibrator) Fit(ctx context.Context, sampler inference.Sampler, cfg inference.Config) (*Result, error) {
	if c.records.NumRecords() < 2 {
		return nil, fmt.Errorf("calibration needs at least 2 records, got %d", c.records.NumRecords())
	}
	data := c.records.Flatten()
	m, err := model.New(data, c.period, c.q, c.priors)
	if err != nil {
		return nil, fmt.Errorf("failed to build calibration model: %w", err)
	}

	target := inference.Target{
		Dim:        m.Dim(),
		Names:      m.ParamNames(),
		LogDensity: m.LogDensity,
	}

	c.logger.Info("locating posterior mode",
		zap.Int("records", data.NumRecords()),
		zap.Int("samples", data.Len()),
		zap.Int("dim", m.Dim()))

	mode, err := inference.MAP(target, m.InitialPoint(), inference.DefaultMAPEvaluations)
	if err != nil {
		return nil, fmt.Errorf("mode search failed: %w", err)
	}

	c.logger.Info("sampling posterior",
		zap.Int("chains", cfg.Chains),
		zap.Int("draws", cfg.Draws))

	samples, err := inference.Run(ctx, sampler, target, mode, cfg)
	if err != nil {
		return nil, fmt.Errorf("posterior sampling failed: %w", err)
	}
	return c.summarize(m, samples), nil
}

func (c *Calibrator) summarize(m *model.Calibration, samples *inference.SampleSet) *Result {
	mean := samples.PosteriorMean()
	sd := samples.PosteriorStdDev()
	n := c.records.NumRecords()

	// re-insert the anchored unit scale of the reference record
	scales := make([]float64, n)
	scaleSD := make([]float64, n)
	scales[model.ReferenceRecord] = 1
	for i := 1; i < n; i++ {
		scales[i] = mean[i-1]
		scaleSD[i] = sd[i-1]
	}

	res := &Result{
		RecordNames: c.records.RecordNames(),
		Scales:      scales,
		ScaleStdDev: scaleSD,
		S0:          mean[n-1],
		Mu:          mean[n],
		NoiseScale:  mean[n+1],
		Samples:     samples,
		model:       m,
		mean:        mean,
	}
	for i, name := range res.RecordNames {
		c.logger.Info("record scale",
			zap.String("record", name),
			zap.Float64("scale", res.Scales[i]),
			zap.Float64("stddev", res.ScaleStdDev[i]))
	}
	return res
}

// PredictSignal evaluates the posterior-mean latent signal at the query
// times, using the posterior mean parameters.
func (r *Result) PredictSignal(query []float64) (mean, variance []float64, err error) {
	return r.model.PredictSignal(r.mean, query)
}
