package stats

// Estimate is the result for one observable or evaluable. Vectors are
// reported componentwise; scalars have length-one slices and Scalar set.
type Estimate struct {
	Name      string
	Available bool
	// Reason explains why the estimate is unavailable.
	Reason string

	Scalar bool
	Mean   []float64
	Error  []float64

	// BinCount is the number of pooled bins the estimate is based on.
	BinCount int

	// Primary observables only.
	RebinLevel int
	Converged  bool
	// TauInt is the integrated autocorrelation time in units of bins,
	// estimated as ((E_l/E_0)^2 - 1)/2.
	TauInt []float64
	Levels []Level
}

// Unavailable builds an estimate marked unavailable because of err.
func Unavailable(name string, err error) Estimate {
	return Estimate{Name: name, Reason: err.Error()}
}

// Analyze computes mean, rebinned error and autocorrelation diagnostic of a
// series. Fewer than two bins is an insufficient data error. Options.Float32
// is applied by Engine when pooling, not here.
func Analyze(s *Series, opts Options) (Estimate, error) {
	levels, err := RebinningAnalysis(s.Bins, opts)
	if err != nil {
		return Estimate{}, err
	}
	idx, converged := ChoosePlateau(levels, opts)
	chosen := levels[idx]

	tau := make([]float64, len(chosen.Error))
	for c, e := range chosen.Error {
		e0 := levels[0].Error[c]
		if e0 > 0 {
			r := e / e0
			tau[c] = (r*r - 1) / 2
		}
	}

	return Estimate{
		Name:       s.Name,
		Available:  true,
		Scalar:     s.Shape.Scalar,
		Mean:       mean(s.Bins),
		Error:      chosen.Error,
		BinCount:   s.Len(),
		RebinLevel: chosen.Level,
		Converged:  converged,
		TauInt:     tau,
		Levels:     levels,
	}, nil
}
