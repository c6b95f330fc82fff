package runner

import (
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/rng"
)

// Settings are the run-relevant task parameters.
type Settings struct {
	Sweeps         int64
	Thermalization int64
	BinSize        int
	RNG            rng.Kind
	// Seed is set only if HasSeed.
	Seed    uint64
	HasSeed bool
	Float32 bool
}

// ParseSettings validates and extracts the well-known parameters.
// Every problem is a configuration error.
func ParseSettings(p mc.Params) (Settings, error) {
	var s Settings
	var err error

	if s.Sweeps, err = p.Int(mc.ParamSweeps); err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}
	if s.Sweeps < 1 {
		return s, mc.NewConfigurationError(fmt.Sprintf("sweeps must be positive, got %d", s.Sweeps))
	}
	if s.Thermalization, err = p.Int(mc.ParamThermalization); err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}
	if s.Thermalization < 0 {
		return s, mc.NewConfigurationError(fmt.Sprintf("thermalization must not be negative, got %d", s.Thermalization))
	}
	binSize, err := p.Int(mc.ParamBinSize)
	if err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}
	if binSize < 1 {
		return s, mc.NewConfigurationError(fmt.Sprintf("binsize must be positive, got %d", binSize))
	}
	s.BinSize = int(binSize)

	kind, err := p.StringOr(mc.ParamRNG, "")
	if err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}
	if s.RNG, err = rng.ParseKind(kind); err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}

	if p.Has(mc.ParamSeed) {
		if s.Seed, err = p.Uint64(mc.ParamSeed); err != nil {
			return s, mc.NewConfigurationError(err.Error())
		}
		s.HasSeed = true
	}

	ft, err := p.StringOr(mc.ParamFloatType, "float64")
	if err != nil {
		return s, mc.NewConfigurationError(err.Error())
	}
	switch ft {
	case "float64":
	case "float32":
		s.Float32 = true
	default:
		return s, mc.NewConfigurationError(fmt.Sprintf("float_type must be float64 or float32, got %q", ft))
	}
	return s, nil
}
