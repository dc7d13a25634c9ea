// Package model defines the hierarchical calibration model: per-record
// multiplicative scales (record 0 anchored at 1), the kernel amplitude, a
// global mean offset, and a noise-variance multiplier, tied together by the
// quasi-periodic Gaussian-process likelihood over the merged dataset.
package model

import (
	"fmt"
	"math"

	"github.com/amunozj/ellery/internal/celerite"
	"github.com/amunozj/ellery/internal/dataset"
	"github.com/amunozj/ellery/internal/kernel"
)

// ReferenceRecord is the record whose calibration scale is fixed at 1.
// Without an anchor the posterior is unidentifiable: all scales could be
// multiplied by a constant absorbed into the signal amplitude.
const ReferenceRecord = 0

// Calibration evaluates the joint posterior log density of the calibration
// parameters given an immutable global dataset. It holds no mutable state
// after construction and is safe to share across sampling chains.
type Calibration struct {
	data   *dataset.GlobalDataset
	period float64
	q      float64
	priors Priors
	names  []string
}

// New builds a calibration model over the given dataset for a known signal
// period and quality factor.
func New(data *dataset.GlobalDataset, period, q float64, priors Priors) (*Calibration, error) {
	if data == nil || data.Len() == 0 {
		return nil, fmt.Errorf("empty dataset")
	}
	if data.NumRecords() < 1 {
		return nil, fmt.Errorf("dataset has no records")
	}
	if period <= 0 {
		return nil, fmt.Errorf("invalid period %v", period)
	}
	if q <= 0.5 {
		return nil, fmt.Errorf("invalid quality factor %v", q)
	}
	if err := priors.check(); err != nil {
		return nil, err
	}

	names := make([]string, 0, data.NumRecords()-1+3)
	for r := 1; r < data.NumRecords(); r++ {
		names = append(names, fmt.Sprintf("scale[%d]", r))
	}
	names = append(names, "S0", "mu", "noiseScale")

	return &Calibration{
		data:   data,
		period: period,
		q:      q,
		priors: priors,
		names:  names,
	}, nil
}

// Dim returns the length of the parameter vector: one scale per non-reference
// record plus S0, mu and noiseScale. The reference record's scale is never a
// sampled parameter.
func (c *Calibration) Dim() int {
	return c.data.NumRecords() - 1 + 3
}

// ParamNames returns the parameter names in vector order.
func (c *Calibration) ParamNames() []string {
	return c.names
}

// unpack splits theta into its components. scales has one entry per record,
// with the reference record filled in as 1.
func (c *Calibration) unpack(theta []float64) (scales []float64, s0, mu, noiseScale float64, err error) {
	if len(theta) != c.Dim() {
		return nil, 0, 0, 0, fmt.Errorf("parameter vector has %d entries, model has %d", len(theta), c.Dim())
	}
	nr := c.data.NumRecords()
	scales = make([]float64, nr)
	scales[ReferenceRecord] = 1
	copy(scales[1:], theta[:nr-1])
	s0 = theta[nr-1]
	mu = theta[nr]
	noiseScale = theta[nr+1]
	return scales, s0, mu, noiseScale, nil
}

// LogDensity returns the unnormalized posterior log density at theta.
// Out-of-support parameters yield -Inf: that is the standard mechanism by
// which a sampler learns to avoid the region, not an error. A non-nil error
// indicates a true numerical fault or a malformed parameter vector; for
// in-support theta the effective diagonal is strictly positive, so the
// factorization cannot fail there.
func (c *Calibration) LogDensity(theta []float64) (float64, error) {
	scales, s0, mu, noiseScale, err := c.unpack(theta)
	if err != nil {
		return 0, err
	}

	lp := c.priors.logDensity(scales[1:], s0, mu, noiseScale)
	if math.IsInf(lp, -1) {
		return math.Inf(-1), nil
	}

	kern, err := kernel.FromPeriod(s0, c.period, c.q)
	if err != nil {
		return 0, err
	}

	resid, diag := c.residuals(scales, mu, noiseScale)
	ll, err := celerite.LogLikelihood(c.data.Times, resid, diag, kern)
	if err != nil {
		return 0, err
	}
	return lp + ll, nil
}

// residuals applies each record's scale to its samples and subtracts the
// mean offset. Dividing by the scale maps every record onto the reference
// footing; the reported uncertainties are divided by the same factor since
// they are quoted in the record's own units.
func (c *Calibration) residuals(scales []float64, mu, noiseScale float64) (resid, diag []float64) {
	n := c.data.Len()
	resid = make([]float64, n)
	diag = make([]float64, n)
	for k := 0; k < n; k++ {
		s := scales[c.data.Owner[k]]
		resid[k] = c.data.Values[k]/s - mu
		e := c.data.Errs[k] / s
		diag[k] = noiseScale * e * e
	}
	return resid, diag
}

// InitialPoint returns an in-support starting vector: scales at the prior
// center, amplitude from the sample variance of the observed values, mean
// offset from their sample mean, and a unit noise multiplier.
func (c *Calibration) InitialPoint() []float64 {
	var sum float64
	for _, v := range c.data.Values {
		sum += v
	}
	mean := sum / float64(c.data.Len())

	var ss float64
	for _, v := range c.data.Values {
		d := v - mean
		ss += d * d
	}
	variance := ss / float64(c.data.Len())

	// kernel variance k(0) = S0*omega0*Q; invert for the amplitude
	omega0 := 2 * math.Pi / c.period
	s0 := variance / (omega0 * c.q)
	if s0 <= 0 {
		s0 = 1
	}

	mu := math.Min(math.Max(mean, c.priors.MuLo), c.priors.MuHi)

	theta := make([]float64, c.Dim())
	nr := c.data.NumRecords()
	for i := 0; i < nr-1; i++ {
		theta[i] = 1
	}
	theta[nr-1] = s0
	theta[nr] = mu
	theta[nr+1] = 1
	return theta
}

// PredictSignal returns the posterior mean and variance of the latent signal
// at the query times, conditioned on the dataset calibrated with the given
// parameter vector. The mean offset is added back, so the result is on the
// reference record's footing.
func (c *Calibration) PredictSignal(theta, query []float64) (mean, variance []float64, err error) {
	scales, s0, mu, noiseScale, err := c.unpack(theta)
	if err != nil {
		return nil, nil, err
	}
	lp := c.priors.logDensity(scales[1:], s0, mu, noiseScale)
	if math.IsInf(lp, -1) {
		return nil, nil, fmt.Errorf("parameters are outside the prior support")
	}

	kern, err := kernel.FromPeriod(s0, c.period, c.q)
	if err != nil {
		return nil, nil, err
	}
	resid, diag := c.residuals(scales, mu, noiseScale)
	mean, variance, err = celerite.Predict(c.data.Times, resid, diag, kern, query)
	if err != nil {
		return nil, nil, err
	}
	for i := range mean {
		mean[i] += mu
	}
	return mean, variance, nil
}
