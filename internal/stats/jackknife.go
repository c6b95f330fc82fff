package stats

import (
	"fmt"
	"math"

	"github.com/roach88/mcjob/internal/mc"
)

// Jackknife estimates fn over the ingredient series.
//
// The bins are first blocked so that the leave-one-out replicas are close
// to independent. Each ingredient's plateau level is found with the same
// rule Analyze uses, and with L the largest of them and N the smallest bin
// count among the ingredients, every ingredient is blocked into B = N/2^L
// groups of floor(count/B) consecutive bins. B is raised to
// opts.MinRebinBins, or N if that is smaller. With f_i the function of the
// block means leaving out block i,
//
//	estimate = B*f(mean) - (B-1)*mean_i(f_i)
//	error    = sqrt((B-1)/B * sum_i (f_i - mean_i(f_i))^2)
//
// BinCount reports N and RebinLevel reports L.
func Jackknife(name string, params mc.Params, fn mc.EvalFunc, ingredients []*Series, opts Options) (Estimate, error) {
	n := -1
	for _, s := range ingredients {
		if n < 0 || s.Len() < n {
			n = s.Len()
		}
	}
	if n < 2 {
		return Estimate{}, mc.NewInsufficientDataError(fmt.Sprintf("evaluable %q: need at least 2 bins per ingredient, have %d", name, max(n, 0)))
	}

	level, err := blockLevel(ingredients, opts)
	if err != nil {
		return Estimate{}, fmt.Errorf("evaluable %q: %w", name, err)
	}
	nb := n >> level
	if floor := min(max(opts.MinRebinBins, 2), n); nb < floor {
		nb = floor
	}

	blocked := make([][][]float64, len(ingredients))
	for k, s := range ingredients {
		blocked[k] = Block(s.Bins, s.Len()/nb)[:nb]
	}

	sums := make([][]float64, len(ingredients))
	full := make([][]float64, len(ingredients))
	for k, bins := range blocked {
		sums[k] = make([]float64, len(bins[0]))
		for _, bin := range bins {
			for c, v := range bin {
				sums[k][c] += v
			}
		}
		full[k] = make([]float64, len(sums[k]))
		for c, v := range sums[k] {
			full[k][c] = v / float64(nb)
		}
	}

	fFull, err := call(fn, params, full)
	if err != nil {
		return Estimate{}, fmt.Errorf("evaluable %q: %w", name, err)
	}
	dim := len(fFull)
	if dim == 0 {
		return Estimate{}, fmt.Errorf("evaluable %q: function returned no values", name)
	}

	replicas := make([][]float64, nb)
	args := make([][]float64, len(ingredients))
	for k := range args {
		args[k] = make([]float64, len(sums[k]))
	}
	for i := 0; i < nb; i++ {
		for k, bins := range blocked {
			for c, v := range bins[i] {
				args[k][c] = (sums[k][c] - v) / float64(nb-1)
			}
		}
		r, err := call(fn, params, args)
		if err != nil {
			return Estimate{}, fmt.Errorf("evaluable %q replica %d: %w", name, i, err)
		}
		if len(r) != dim {
			return Estimate{}, fmt.Errorf("evaluable %q replica %d: returned %d values, want %d", name, i, len(r), dim)
		}
		replicas[i] = r
	}

	mr := mean(replicas)
	est := make([]float64, dim)
	errs := make([]float64, dim)
	for c := 0; c < dim; c++ {
		est[c] = float64(nb)*fFull[c] - float64(nb-1)*mr[c]
		var ss float64
		for _, r := range replicas {
			d := r[c] - mr[c]
			ss += d * d
		}
		errs[c] = math.Sqrt(float64(nb-1) / float64(nb) * ss)
	}

	return Estimate{
		Name:       name,
		Available:  true,
		Scalar:     dim == 1,
		Mean:       est,
		Error:      errs,
		BinCount:   n,
		RebinLevel: level,
		Converged:  true,
	}, nil
}

// blockLevel returns the largest plateau level among the ingredients.
func blockLevel(ingredients []*Series, opts Options) (int, error) {
	level := 0
	for _, s := range ingredients {
		levels, err := RebinningAnalysis(s.Bins, opts)
		if err != nil {
			return 0, fmt.Errorf("ingredient %q: %w", s.Name, err)
		}
		idx, _ := ChoosePlateau(levels, opts)
		level = max(level, levels[idx].Level)
	}
	return level, nil
}

// call invokes fn on a private copy of args so a misbehaving function
// cannot corrupt the running sums.
func call(fn mc.EvalFunc, params mc.Params, args [][]float64) ([]float64, error) {
	cp := make([][]float64, len(args))
	for i, a := range args {
		cp[i] = append([]float64(nil), a...)
	}
	out, err := fn(params, cp)
	if err != nil {
		return nil, err
	}
	for c, v := range out {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("value %d is NaN", c)
		}
	}
	return out, nil
}
