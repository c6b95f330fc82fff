package runner

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/parallel"
)

// runContext is the mc.Context handed to the algorithm. Samples are
// collected per sweep and flushed by the controller after the sweep.
type runContext struct {
	c       *Controller
	pending []parallel.Sample
}

var _ mc.Context = (*runContext)(nil)

func (rc *runContext) Report(name string, value float64) error {
	if name == "" {
		return mc.NewConfigurationError("observable name is empty")
	}
	rc.pending = append(rc.pending, parallel.Sample{Name: name, Scalar: true, Values: []float64{value}})
	return nil
}

func (rc *runContext) ReportVector(name string, value []float64) error {
	if name == "" {
		return mc.NewConfigurationError("observable name is empty")
	}
	if len(value) == 0 {
		return mc.NewConfigurationError(fmt.Sprintf("observable %q: empty vector", name))
	}
	rc.pending = append(rc.pending, parallel.Sample{Name: name, Values: append([]float64(nil), value...)})
	return nil
}

func (rc *runContext) IsThermalized() bool {
	return rc.c.thermalized
}

func (rc *runContext) Rand() *rand.Rand {
	return rc.c.stream.Rand()
}

func (rc *runContext) Rank() int {
	return rc.c.coord.Rank()
}

func (rc *runContext) Ranks() int {
	return rc.c.coord.Ranks()
}

// take returns and clears the samples of the current sweep.
func (rc *runContext) take() []parallel.Sample {
	s := rc.pending
	rc.pending = nil
	return s
}
