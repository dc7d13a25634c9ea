// Package celerite evaluates Gaussian-process likelihoods and predictions
// under a damped-oscillator kernel in time linear in the number of samples.
// The covariance matrix of such a kernel is semi-separable: below the
// diagonal it is a rank-2 outer product damped between neighboring times.
// That structure admits a Cholesky-like factorization K = L D L^T computed
// in one forward sweep, so the N x N matrix is never materialized.
package celerite

import (
	"errors"
	"fmt"
	"math"

	"github.com/amunozj/ellery/internal/kernel"
)

// ErrNonPositiveDefinite is returned when the factorization encounters a
// non-positive effective diagonal. With strictly positive per-sample noise
// variance this cannot happen; seeing it indicates a configuration bug, not
// a rejected proposal.
var ErrNonPositiveDefinite = errors.New("covariance matrix is not positive definite")

// rank is the width of the low-rank off-diagonal state: one damped
// exponential pair contributes a cosine and a sine component.
const rank = 2

// Factorization holds the semi-separable Cholesky factors of
// K + diag(noise). It is read-only after Factor returns and safe to share
// across goroutines.
type Factorization struct {
	kern  kernel.SHO
	times []float64

	d   []float64         // diagonal of D
	u   [][rank]float64   // low-rank rows of the strict lower triangle
	w   [][rank]float64   // conjugate rows, premultiplied by D^-1
	phi []float64         // phi[n] damps state from sample n-1 to n; phi[0] unused
}

// Factor computes the semi-separable factorization of K + diag(diag), where
// K[i][j] = k(times[i]-times[j]) under the given kernel. times must be
// non-decreasing (the global timeline merge guarantees this) and every diag
// entry strictly positive.
func Factor(times, diag []float64, kern kernel.SHO) (*Factorization, error) {
	if err := kern.Check(); err != nil {
		return nil, err
	}
	n := len(times)
	if len(diag) != n {
		return nil, fmt.Errorf("times has %d entries, diag has %d", n, len(diag))
	}
	if n == 0 {
		return nil, fmt.Errorf("empty dataset")
	}
	for i := 1; i < n; i++ {
		if times[i] < times[i-1] {
			return nil, fmt.Errorf("times must be non-decreasing: t[%d]=%v > t[%d]=%v",
				i-1, times[i-1], i, times[i])
		}
	}

	a, b, c, d := kern.Coefficients()
	k0 := kern.Variance()

	f := &Factorization{
		kern:  kern,
		times: append([]float64(nil), times...),
		d:     make([]float64, n),
		u:     make([][rank]float64, n),
		w:     make([][rank]float64, n),
		phi:   make([]float64, n),
	}

	// u[n] . v[m] reproduces a*cos(d*(tn-tm)) + b*sin(d*(tn-tm)) for m < n;
	// the exponential envelope lives entirely in phi, so every stored term
	// stays bounded regardless of the time span.
	v := make([][rank]float64, n)
	for i, t := range times {
		cs, sn := math.Cos(d*t), math.Sin(d*t)
		f.u[i] = [rank]float64{a*cs + b*sn, a*sn - b*cs}
		v[i] = [rank]float64{cs, sn}
		if i > 0 {
			f.phi[i] = math.Exp(-c * (times[i] - times[i-1]))
		}
	}

	for i := range diag {
		if !(diag[i] > 0) {
			return nil, fmt.Errorf("diagonal variance %v at index %d: %w",
				diag[i], i, ErrNonPositiveDefinite)
		}
	}

	// forward sweep: s accumulates the damped outer-product state
	var s [rank][rank]float64
	f.d[0] = k0 + diag[0]
	for j := 0; j < rank; j++ {
		f.w[0][j] = v[0][j] / f.d[0]
	}
	for i := 1; i < n; i++ {
		p2 := f.phi[i] * f.phi[i]
		for j := 0; j < rank; j++ {
			for k := 0; k < rank; k++ {
				s[j][k] = p2 * (s[j][k] + f.d[i-1]*f.w[i-1][j]*f.w[i-1][k])
			}
		}
		var tmp [rank]float64
		var dot float64
		for j := 0; j < rank; j++ {
			tmp[j] = f.u[i][0]*s[0][j] + f.u[i][1]*s[1][j]
			dot += f.u[i][j] * tmp[j]
		}
		f.d[i] = k0 + diag[i] - dot
		if !(f.d[i] > 0) {
			return nil, fmt.Errorf("pivot %v at index %d: %w", f.d[i], i, ErrNonPositiveDefinite)
		}
		for j := 0; j < rank; j++ {
			f.w[i][j] = (v[i][j] - tmp[j]) / f.d[i]
		}
	}
	return f, nil
}

// Len returns the number of samples in the factorization.
func (f *Factorization) Len() int {
	return len(f.d)
}

// LogDet returns the log determinant of K + diag(noise). L has a unit
// diagonal, so only D contributes.
func (f *Factorization) LogDet() float64 {
	var sum float64
	for _, di := range f.d {
		sum += math.Log(di)
	}
	return sum
}

// Solve returns x = (K + diag(noise))^-1 y in O(N), via forward and
// backward substitution through the semi-separable factors. Panics when y
// does not match the factorization length.
func (f *Factorization) Solve(y []float64) []float64 {
	n := f.Len()
	if len(y) != n {
		panic(fmt.Sprintf("celerite: vector has %d entries, factorization has %d", len(y), n))
	}
	x := append([]float64(nil), y...)

	// z = L^-1 y
	var fwd [rank]float64
	for i := 1; i < n; i++ {
		for j := 0; j < rank; j++ {
			fwd[j] = f.phi[i] * (fwd[j] + f.w[i-1][j]*x[i-1])
		}
		x[i] -= f.u[i][0]*fwd[0] + f.u[i][1]*fwd[1]
	}

	// z = D^-1 z
	for i := 0; i < n; i++ {
		x[i] /= f.d[i]
	}

	// x = L^-T z
	var bwd [rank]float64
	for i := n - 2; i >= 0; i-- {
		for j := 0; j < rank; j++ {
			bwd[j] = f.phi[i+1] * (bwd[j] + f.u[i+1][j]*x[i+1])
		}
		x[i] -= f.w[i][0]*bwd[0] + f.w[i][1]*bwd[1]
	}
	return x
}
