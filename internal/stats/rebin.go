package stats

import (
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
)

// Options tunes the analysis.
type Options struct {
	// MinRebinBins is the smallest bin count at which a rebinning level is
	// still computed. Level 0 is always computed.
	MinRebinBins int

	// PlateauWindow is the number of following levels that must confirm a
	// plateau.
	PlateauWindow int

	// PlateauTolerance is the relative increase still counted as flat.
	PlateauTolerance float64

	// Float32 rounds all bin values to float32 before analysis.
	Float32 bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinRebinBins:     16,
		PlateauWindow:    2,
		PlateauTolerance: 0.1,
	}
}

// Level is one rebinning level.
type Level struct {
	Level    int       `json:"level"`
	BinCount int       `json:"bins"`
	Error    []float64 `json:"error"`
}

// RebinningAnalysis computes the standard error at every level. Requires at
// least two bins.
func RebinningAnalysis(bins [][]float64, opts Options) ([]Level, error) {
	if len(bins) < 2 {
		return nil, mc.NewInsufficientDataError(fmt.Sprintf("need at least 2 bins, have %d", len(bins)))
	}
	var levels []Level
	cur := bins
	for l := 0; ; l++ {
		levels = append(levels, Level{Level: l, BinCount: len(cur), Error: stdErr(cur, mean(cur))})
		next := Rebin(cur)
		if len(next) < 2 || len(next) < opts.MinRebinBins {
			break
		}
		cur = next
	}
	return levels, nil
}

// ChoosePlateau applies the plateau rule to levels. Returns the index of
// the reported level and whether a plateau was confirmed.
func ChoosePlateau(levels []Level, opts Options) (int, bool) {
	window := opts.PlateauWindow
	if window < 1 {
		window = 1
	}
	for l := 0; l+window < len(levels); l++ {
		if flatAfter(levels, l, window, opts.PlateauTolerance) {
			return l, true
		}
	}
	return len(levels) - 1, false
}

func flatAfter(levels []Level, l, window int, tol float64) bool {
	base := levels[l].Error
	for j := l + 1; j <= l+window; j++ {
		for c, e := range levels[j].Error {
			if e > base[c]*(1+tol) {
				return false
			}
		}
	}
	return true
}
