package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/mc"
)

func TestRebin_PairsAndDropsOdd(t *testing.T) {
	got := Rebin(toBins([]float64{1, 3, 5, 7, 100}))
	assert.Equal(t, [][]float64{{2}, {6}}, got)
}

func TestBlock(t *testing.T) {
	got := Block(toBins([]float64{1, 2, 3, 4, 5, 6, 7}), 3)
	assert.Equal(t, [][]float64{{2}, {5}}, got)

	same := toBins([]float64{1, 2})
	assert.Equal(t, same, Block(same, 1))
}

func TestRebinningAnalysis_LevelCounts(t *testing.T) {
	opts := DefaultOptions()
	levels, err := RebinningAnalysis(toBins(normalSamples(1, 256, 0, 1)), opts)
	require.NoError(t, err)

	// 256, 128, 64, 32, 16
	require.Len(t, levels, 5)
	for i, l := range levels {
		assert.Equal(t, i, l.Level)
		assert.Equal(t, 256>>i, l.BinCount)
	}
}

func TestRebinningAnalysis_TooFewBins(t *testing.T) {
	_, err := RebinningAnalysis(toBins([]float64{1}), DefaultOptions())
	require.Error(t, err)
	assert.True(t, mc.IsInsufficientDataError(err))
}

func TestRebinningAnalysis_FewBinsKeepsLevelZero(t *testing.T) {
	levels, err := RebinningAnalysis(toBins([]float64{1, 2, 3}), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 3, levels[0].BinCount)
}

func TestChoosePlateau(t *testing.T) {
	opts := DefaultOptions()
	mk := func(errs ...float64) []Level {
		out := make([]Level, len(errs))
		for i, e := range errs {
			out[i] = Level{Level: i, Error: []float64{e}}
		}
		return out
	}

	idx, ok := ChoosePlateau(mk(1, 1.02, 0.98, 1.01), opts)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	// rises then flattens at level 2
	idx, ok = ChoosePlateau(mk(1, 1.5, 2.0, 2.05, 2.1), opts)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	// never flattens: last level, not converged
	idx, ok = ChoosePlateau(mk(1, 2, 3, 4), opts)
	assert.False(t, ok)
	assert.Equal(t, 3, idx)

	// a single level can never be confirmed
	idx, ok = ChoosePlateau(mk(1), opts)
	assert.False(t, ok)
	assert.Equal(t, 0, idx)
}

// TestAnalyze_UncorrelatedIsStable checks that for i.i.d. bins the rebinned
// error does not grow materially over the naive error.
func TestAnalyze_UncorrelatedIsStable(t *testing.T) {
	s := &Series{Name: "x", Bins: toBins(normalSamples(11, 4096, 3, 2))}
	s.Shape.Scalar, s.Shape.Len = true, 1

	est, err := Analyze(s, DefaultOptions())
	require.NoError(t, err)

	naive := est.Levels[0].Error[0]
	assert.InDelta(t, 2/math.Sqrt(4096), naive, 0.1*2/math.Sqrt(4096))
	for _, l := range est.Levels[:len(est.Levels)-3] {
		assert.InDelta(t, 1, l.Error[0]/naive, 0.3, "level %d", l.Level)
	}
	assert.True(t, est.Converged)
	assert.InDelta(t, naive, est.Error[0], 0.15*naive)
	assert.Less(t, math.Abs(est.TauInt[0]), 0.2)
}

// TestAnalyze_CorrelatedGrowsError uses AR(1) data with rho=0.9, whose
// error is sqrt((1+rho)/(1-rho)) ~ 4.36 times the naive one.
func TestAnalyze_CorrelatedGrowsError(t *testing.T) {
	s := &Series{Name: "x", Bins: toBins(ar1Samples(5, 1<<16, 0.9))}
	s.Shape.Scalar, s.Shape.Len = true, 1

	est, err := Analyze(s, DefaultOptions())
	require.NoError(t, err)

	ratio := est.Error[0] / est.Levels[0].Error[0]
	assert.Greater(t, ratio, 3.0)
	assert.Less(t, ratio, 5.5)
	assert.Greater(t, est.RebinLevel, 2)
	assert.Greater(t, est.TauInt[0], 3.0)
}

func TestAnalyze_ConstantHasZeroError(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = 5
	}
	s := &Series{Name: "c", Bins: toBins(vals)}
	s.Shape.Scalar, s.Shape.Len = true, 1

	est, err := Analyze(s, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, est.Mean)
	assert.Equal(t, []float64{0}, est.Error)
	assert.Equal(t, []float64{0}, est.TauInt)
}
