package models

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/mcjob/internal/mc"
)

// Gaussian draws normal samples with mean "mu" (default 0) and standard
// deviation "sigma" (default 1). With "rho" in (-1, 1) consecutive samples
// form an AR(1) chain with lag-one correlation rho, which makes the
// rebinning analysis visible.
//
// Observables: "x", its moments "x2" and "x4", and the vector "moments"
// holding [x, x2].
type Gaussian struct{}

// Name implements mc.Model.
func (Gaussian) Name() string { return "gaussian" }

// New implements mc.Model.
func (Gaussian) New(params mc.Params) (mc.Algorithm, error) {
	a := &gaussianAlgorithm{sigma: 1}
	for key, dst := range map[string]*float64{"mu": &a.mu, "sigma": &a.sigma, "rho": &a.rho} {
		if !params.Has(key) {
			continue
		}
		v, err := params.Float(key)
		if err != nil {
			return nil, mc.NewConfigurationError(err.Error())
		}
		*dst = v
	}
	if a.sigma <= 0 {
		return nil, mc.NewConfigurationError(fmt.Sprintf("gaussian: sigma must be positive, got %v", a.sigma))
	}
	if a.rho <= -1 || a.rho >= 1 {
		return nil, mc.NewConfigurationError(fmt.Sprintf("gaussian: rho must be in (-1, 1), got %v", a.rho))
	}
	return a, nil
}

// RegisterEvaluables registers the Binder ratio <x4>/<x2>^2 and the
// variance <x2> - <x>^2.
func (Gaussian) RegisterEvaluables(ev mc.Evaluator, _ mc.Params) error {
	if err := ev.Evaluate("binder", []string{"x2", "x4"}, func(_ mc.Params, args [][]float64) ([]float64, error) {
		x2, x4 := args[0][0], args[1][0]
		if x2 == 0 {
			return nil, fmt.Errorf("<x2> is zero")
		}
		return []float64{x4 / (x2 * x2)}, nil
	}); err != nil {
		return err
	}
	return ev.Evaluate("variance", []string{"x", "x2"}, func(_ mc.Params, args [][]float64) ([]float64, error) {
		x, x2 := args[0][0], args[1][0]
		return []float64{x2 - x*x}, nil
	})
}

type gaussianAlgorithm struct {
	mu, sigma, rho float64

	// z is the standardized chain state.
	z float64
}

type gaussianState struct {
	Z float64 `json:"z"`
}

func (a *gaussianAlgorithm) Init(ctx mc.Context, _ mc.Params) error {
	a.z = ctx.Rand().NormFloat64()
	return nil
}

func (a *gaussianAlgorithm) Sweep(ctx mc.Context) error {
	a.z = a.rho*a.z + math.Sqrt(1-a.rho*a.rho)*ctx.Rand().NormFloat64()
	return nil
}

func (a *gaussianAlgorithm) Measure(ctx mc.Context) error {
	x := a.mu + a.sigma*a.z
	x2 := x * x
	if err := ctx.Report("x", x); err != nil {
		return err
	}
	if err := ctx.Report("x2", x2); err != nil {
		return err
	}
	if err := ctx.Report("x4", x2*x2); err != nil {
		return err
	}
	return ctx.ReportVector("moments", []float64{x, x2})
}

func (a *gaussianAlgorithm) WriteCheckpoint() ([]byte, error) {
	return json.Marshal(gaussianState{Z: a.z})
}

func (a *gaussianAlgorithm) ReadCheckpoint(data []byte) error {
	var st gaussianState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("gaussian: %w", err)
	}
	a.z = st.Z
	return nil
}
