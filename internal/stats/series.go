package stats

import (
	"fmt"
	"math"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
)

// Series is the pooled bin sequence of one observable.
type Series struct {
	Name  string
	Shape measure.Shape
	Bins  [][]float64
}

// Pool concatenates the finalized bins of all runs in run order. Runs
// without bins for the observable are skipped. A shape mismatch between
// runs is a configuration error.
func Pool(name string, runs []measure.State) (*Series, error) {
	s := &Series{Name: name}
	for i, st := range runs {
		if len(st.Bins) == 0 {
			continue
		}
		if s.Shape.Len == 0 {
			s.Shape = st.Shape
		} else if st.Shape != s.Shape {
			return nil, mc.NewConfigurationError(fmt.Sprintf(
				"observable %q: run %d has shape %s, earlier runs have %s", name, i, st.Shape, s.Shape))
		}
		for j, bin := range st.Bins {
			if len(bin) != s.Shape.Len {
				return nil, mc.NewConfigurationError(fmt.Sprintf(
					"observable %q: run %d bin %d has length %d, want %d", name, i, j, len(bin), s.Shape.Len))
			}
			s.Bins = append(s.Bins, []float64(bin))
		}
	}
	return s, nil
}

// Len returns the number of bins.
func (s *Series) Len() int {
	return len(s.Bins)
}

// roundFloat32 returns a copy of s with every value rounded to float32.
func (s *Series) roundFloat32() *Series {
	out := &Series{Name: s.Name, Shape: s.Shape, Bins: make([][]float64, len(s.Bins))}
	for i, bin := range s.Bins {
		r := make([]float64, len(bin))
		for j, v := range bin {
			r[j] = float64(float32(v))
		}
		out.Bins[i] = r
	}
	return out
}

// mean returns the componentwise mean of bins.
func mean(bins [][]float64) []float64 {
	if len(bins) == 0 {
		return nil
	}
	m := make([]float64, len(bins[0]))
	for _, bin := range bins {
		for j, v := range bin {
			m[j] += v
		}
	}
	for j := range m {
		m[j] /= float64(len(bins))
	}
	return m
}

// stdErr returns the componentwise standard error of the mean of bins,
// treating them as independent. Requires at least two bins.
func stdErr(bins [][]float64, m []float64) []float64 {
	n := float64(len(bins))
	e := make([]float64, len(m))
	for _, bin := range bins {
		for j, v := range bin {
			d := v - m[j]
			e[j] += d * d
		}
	}
	for j := range e {
		e[j] = math.Sqrt(e[j] / (n - 1) / n)
	}
	return e
}

// Rebin merges adjacent bins pairwise. A trailing odd bin is dropped.
func Rebin(bins [][]float64) [][]float64 {
	return Block(bins, 2)
}

// Block averages consecutive groups of size bins. Trailing bins that do
// not fill a group are dropped.
func Block(bins [][]float64, size int) [][]float64 {
	if size <= 1 {
		return bins
	}
	n := len(bins) / size
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = mean(bins[i*size : (i+1)*size])
	}
	return out
}
