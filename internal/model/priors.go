package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Priors collects the hyperparameters of every prior in the calibration
// model. All densities are evaluated up to constants that do not depend on
// the sampled parameters.
type Priors struct {
	S0Sigma    float64 // half-normal scale on the kernel amplitude S0
	NoiseSigma float64 // half-normal scale on the noise-variance multiplier
	MuLo, MuHi float64 // uniform support for the mean offset
	ScaleSigma float64 // normal scale of the per-record calibration prior around 1
	ScaleMax   float64 // upper support bound for calibration scales
}

// DefaultPriors returns weakly informative priors: amplitudes and the noise
// multiplier stay order-unity, the mean offset is bounded but wide, and
// calibration scales live on (0, 1.5] centered at the reference value 1.
func DefaultPriors() Priors {
	return Priors{
		S0Sigma:    10,
		NoiseSigma: 2,
		MuLo:       -100,
		MuHi:       100,
		ScaleSigma: 0.25,
		ScaleMax:   1.5,
	}
}

func (p Priors) check() error {
	if p.S0Sigma <= 0 || p.NoiseSigma <= 0 || p.ScaleSigma <= 0 ||
		p.ScaleMax <= 0 || p.MuLo >= p.MuHi {
		return fmt.Errorf("invalid priors %+v", p)
	}
	return nil
}

// logDensity returns the joint prior log density, or -Inf when any parameter
// leaves its support. scales excludes the reference record.
func (p Priors) logDensity(scales []float64, s0, mu, noiseScale float64) float64 {
	if s0 <= 0 || noiseScale <= 0 || mu < p.MuLo || mu > p.MuHi {
		return math.Inf(-1)
	}
	for _, s := range scales {
		if s <= 0 || s > p.ScaleMax {
			return math.Inf(-1)
		}
	}

	half := distuv.Normal{Mu: 0, Sigma: p.S0Sigma}
	lp := half.LogProb(s0) + math.Ln2

	half.Sigma = p.NoiseSigma
	lp += half.LogProb(noiseScale) + math.Ln2

	lp += distuv.Uniform{Min: p.MuLo, Max: p.MuHi}.LogProb(mu)

	// truncation to (0, ScaleMax] is a constant shift; omitted
	scalePrior := distuv.Normal{Mu: 1, Sigma: p.ScaleSigma}
	for _, s := range scales {
		lp += scalePrior.LogProb(s)
	}
	return lp
}
