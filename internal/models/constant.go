package models

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
)

// Constant reports a fixed value every measurement. Parameter "value"
// (default 5) sets it.
type Constant struct{}

// Name implements mc.Model.
func (Constant) Name() string { return "constant" }

// New implements mc.Model.
func (Constant) New(params mc.Params) (mc.Algorithm, error) {
	v := 5.0
	if params.Has("value") {
		var err error
		if v, err = params.Float("value"); err != nil {
			return nil, mc.NewConfigurationError(err.Error())
		}
	}
	return &constantAlgorithm{value: v}, nil
}

// RegisterEvaluables registers "value_squared".
func (Constant) RegisterEvaluables(ev mc.Evaluator, _ mc.Params) error {
	return ev.Evaluate("value_squared", []string{"value"}, func(_ mc.Params, args [][]float64) ([]float64, error) {
		return []float64{args[0][0] * args[0][0]}, nil
	})
}

type constantAlgorithm struct {
	value  float64
	sweeps int64
}

type constantState struct {
	Sweeps int64 `json:"sweeps"`
}

func (a *constantAlgorithm) Init(mc.Context, mc.Params) error { return nil }

func (a *constantAlgorithm) Sweep(mc.Context) error {
	a.sweeps++
	return nil
}

func (a *constantAlgorithm) Measure(ctx mc.Context) error {
	return ctx.Report("value", a.value)
}

func (a *constantAlgorithm) WriteCheckpoint() ([]byte, error) {
	return json.Marshal(constantState{Sweeps: a.sweeps})
}

func (a *constantAlgorithm) ReadCheckpoint(data []byte) error {
	var st constantState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("constant: %w", err)
	}
	a.sweeps = st.Sweeps
	return nil
}
