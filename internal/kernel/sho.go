// Package kernel defines the damped-oscillator ("quasi-periodic") covariance
// function and its exponential-pair representation, the structure the linear
// time factorization in internal/celerite exploits.
package kernel

import (
	"fmt"
	"math"
)

// DefaultQ is the quality factor used when none is configured. 1/sqrt(2)
// gives the flattest power spectrum on the oscillatory branch, the usual
// choice when the decay timescale is not inferred.
const DefaultQ = 1.0 / math.Sqrt2

// SHO is the covariance of a stochastically driven damped harmonic
// oscillator with power S0, angular frequency Omega0 and quality factor Q.
// For Q > 1/2 it is quasi-periodic: a cosine at the oscillator frequency
// under an exponential decay envelope.
type SHO struct {
	S0     float64 // power at the oscillator frequency, > 0
	Omega0 float64 // angular frequency, > 0
	Q      float64 // quality factor, > 1/2
}

// FromPeriod builds an SHO kernel from a known period rather than an angular
// frequency.
func FromPeriod(s0, period, q float64) (SHO, error) {
	if period <= 0 {
		return SHO{}, fmt.Errorf("invalid period %v", period)
	}
	k := SHO{S0: s0, Omega0: 2 * math.Pi / period, Q: q}
	if err := k.Check(); err != nil {
		return SHO{}, err
	}
	return k, nil
}

// Check validates the hyperparameters. Q must be on the oscillatory branch
// (Q > 1/2); the overdamped branch has a different exponential expansion and
// is not supported.
func (k SHO) Check() error {
	if !(k.S0 > 0) || !(k.Omega0 > 0) || !(k.Q > 0.5) {
		return fmt.Errorf("invalid kernel parameters %s", k)
	}
	return nil
}

// Coefficients returns the single exponential pair (a, b, c, d) such that
//
//	k(tau) = exp(-c*tau) * (a*cos(d*tau) + b*sin(d*tau)), tau >= 0.
//
// This is the semi-separable representation consumed by the factorization.
func (k SHO) Coefficients() (a, b, c, d float64) {
	eta := math.Sqrt(1 - 1/(4*k.Q*k.Q))
	a = k.S0 * k.Omega0 * k.Q
	b = a / (2 * eta * k.Q)
	c = k.Omega0 / (2 * k.Q)
	d = eta * k.Omega0
	return a, b, c, d
}

// Value evaluates the covariance at time lag tau. Used by dense reference
// computations and per-query predictive terms; the O(N) path never calls it
// per matrix element.
func (k SHO) Value(tau float64) float64 {
	a, b, c, d := k.Coefficients()
	tau = math.Abs(tau)
	return math.Exp(-c*tau) * (a*math.Cos(d*tau) + b*math.Sin(d*tau))
}

// Variance returns k(0), the prior marginal variance of the process.
func (k SHO) Variance() float64 {
	return k.S0 * k.Omega0 * k.Q
}

func (k SHO) String() string {
	return fmt.Sprintf("{S0=%v, omega0=%v, Q=%v}", k.S0, k.Omega0, k.Q)
}
