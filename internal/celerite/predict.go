package celerite

import (
	"math"
	"sort"

	"github.com/amunozj/ellery/internal/kernel"
)

// LogLikelihood computes the log density of resid under a zero-mean
// multivariate normal with covariance K + diag(diag), in O(N). resid must be
// in the same (time-sorted) order as times.
func LogLikelihood(times, resid, diag []float64, kern kernel.SHO) (float64, error) {
	f, err := Factor(times, diag, kern)
	if err != nil {
		return 0, err
	}
	return f.LogLikelihood(resid), nil
}

// LogLikelihood evaluates the log density for a residual vector against an
// existing factorization.
func (f *Factorization) LogLikelihood(resid []float64) float64 {
	alpha := f.Solve(resid)
	var quad float64
	for i, r := range resid {
		quad += r * alpha[i]
	}
	n := float64(f.Len())
	return -0.5 * (quad + f.LogDet() + n*math.Log(2*math.Pi))
}

// Predict computes the posterior mean and marginal variance of the latent
// process at the query times, conditioned on resid observed at times with
// per-sample noise variance diag. Query times may lie anywhere, including
// outside the observed span; far from data the variance approaches the prior
// k(0). The mean costs O(N+M) via two damped sweeps over the merged
// timeline; each variance entry reuses the factorization for one O(N) solve.
func Predict(times, resid, diag []float64, kern kernel.SHO, query []float64) (mean, variance []float64, err error) {
	f, err := Factor(times, diag, kern)
	if err != nil {
		return nil, nil, err
	}
	alpha := f.Solve(resid)

	a, b, c, d := kern.Coefficients()
	n := len(times)
	m := len(query)
	mean = make([]float64, m)

	// visit queries in time order so the damped accumulators advance
	// monotonically
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return query[order[i]] < query[order[j]] })

	// forward sweep: contributions from samples at or before each query
	var f1, f2 float64
	cur := math.Inf(-1)
	di := 0
	for _, q := range order {
		tq := query[q]
		for di < n && times[di] <= tq {
			t := times[di]
			if !math.IsInf(cur, -1) {
				decay := math.Exp(-c * (t - cur))
				f1 *= decay
				f2 *= decay
			}
			f1 += alpha[di] * math.Cos(d*t)
			f2 += alpha[di] * math.Sin(d*t)
			cur = t
			di++
		}
		if di > 0 {
			decay := math.Exp(-c * (tq - cur))
			f1 *= decay
			f2 *= decay
			cur = tq
			cs, sn := math.Cos(d*tq), math.Sin(d*tq)
			mean[q] += (a*cs+b*sn)*f1 + (a*sn-b*cs)*f2
		}
	}

	// backward sweep: contributions from samples strictly after each query
	var g1, g2 float64
	cur = math.Inf(1)
	di = n - 1
	for i := m - 1; i >= 0; i-- {
		q := order[i]
		tq := query[q]
		for di >= 0 && times[di] > tq {
			t := times[di]
			if !math.IsInf(cur, 1) {
				decay := math.Exp(-c * (cur - t))
				g1 *= decay
				g2 *= decay
			}
			g1 += alpha[di] * math.Cos(d*t)
			g2 += alpha[di] * math.Sin(d*t)
			cur = t
			di--
		}
		if di < n-1 {
			decay := math.Exp(-c * (cur - tq))
			g1 *= decay
			g2 *= decay
			cur = tq
			cs, sn := math.Cos(d*tq), math.Sin(d*tq)
			mean[q] += cs*(a*g1+b*g2) + sn*(a*g2-b*g1)
		}
	}

	variance = make([]float64, m)
	k0 := kern.Variance()
	kstar := make([]float64, n)
	for q, tq := range query {
		for i, t := range times {
			kstar[i] = kern.Value(tq - t)
		}
		sol := f.Solve(kstar)
		var quad float64
		for i := range kstar {
			quad += kstar[i] * sol[i]
		}
		variance[q] = k0 - quad
	}
	return mean, variance, nil
}
