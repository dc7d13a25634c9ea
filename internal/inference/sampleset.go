package inference

import (
	"gonum.org/v1/gonum/stat"
)

// SampleSet is the collection of posterior draws grouped by chain. Draws
// within one chain are in generation order and correlated by construction;
// no ordering holds across chains.
type SampleSet struct {
	Names  []string
	Chains []Chain
}

// NumDraws returns the total number of retained draws across all chains.
func (s *SampleSet) NumDraws() int {
	n := 0
	for _, ch := range s.Chains {
		n += len(ch.Draws)
	}
	return n
}

// Dim returns the parameter dimensionality, or 0 for an empty set.
func (s *SampleSet) Dim() int {
	for _, ch := range s.Chains {
		if len(ch.Draws) > 0 {
			return len(ch.Draws[0])
		}
	}
	return 0
}

// column gathers one parameter across every chain and draw.
func (s *SampleSet) column(j int) []float64 {
	out := make([]float64, 0, s.NumDraws())
	for _, ch := range s.Chains {
		for _, draw := range ch.Draws {
			out = append(out, draw[j])
		}
	}
	return out
}

// Flat concatenates every chain into one draws-by-dim slice, chains in
// index order.
func (s *SampleSet) Flat() [][]float64 {
	out := make([][]float64, 0, s.NumDraws())
	for _, ch := range s.Chains {
		for _, draw := range ch.Draws {
			cp := make([]float64, len(draw))
			copy(cp, draw)
			out = append(out, cp)
		}
	}
	return out
}

// PosteriorMean returns the per-parameter mean over all chains and draws.
func (s *SampleSet) PosteriorMean() []float64 {
	dim := s.Dim()
	out := make([]float64, dim)
	for j := 0; j < dim; j++ {
		out[j] = stat.Mean(s.column(j), nil)
	}
	return out
}

// PosteriorStdDev returns the per-parameter standard deviation over all
// chains and draws.
func (s *SampleSet) PosteriorStdDev() []float64 {
	dim := s.Dim()
	out := make([]float64, dim)
	for j := 0; j < dim; j++ {
		out[j] = stat.StdDev(s.column(j), nil)
	}
	return out
}
