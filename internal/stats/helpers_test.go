package stats

import (
	"math/rand/v2"

	"github.com/roach88/mcjob/internal/measure"
)

// scalarBins wraps values as scalar bins.
func scalarBins(values ...float64) []measure.Vec {
	out := make([]measure.Vec, len(values))
	for i, v := range values {
		out[i] = measure.Vec{v}
	}
	return out
}

// scalarState builds a binner state holding the given scalar bins.
func scalarState(values ...float64) measure.State {
	return measure.State{
		BinSize: 1,
		Shape:   measure.Shape{Scalar: true, Len: 1},
		Bins:    scalarBins(values...),
	}
}

// normalSamples draws n i.i.d. normal samples with the given mean and
// standard deviation from a fixed seed.
func normalSamples(seed uint64, n int, mu, sigma float64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*r.NormFloat64()
	}
	return out
}

// ar1Samples draws n samples of x_t = rho*x_{t-1} + noise.
func ar1Samples(seed uint64, n int, rho float64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0xfeedface))
	out := make([]float64, n)
	x := 0.0
	for i := range out {
		x = rho*x + r.NormFloat64()
		out[i] = x
	}
	return out
}

func toBins(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{v}
	}
	return out
}
