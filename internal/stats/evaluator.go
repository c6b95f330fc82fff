package stats

import (
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
)

// Evaluable is a registered derived quantity.
type Evaluable struct {
	Name        string
	Ingredients []string
	Func        mc.EvalFunc
}

// Evaluator is the evaluable registry of one task. It implements
// mc.Evaluator and keeps registration order.
type Evaluator struct {
	params     mc.Params
	evaluables []Evaluable
	index      map[string]int
}

var _ mc.Evaluator = (*Evaluator)(nil)

// NewEvaluator creates an empty registry for a task's parameters.
func NewEvaluator(params mc.Params) *Evaluator {
	return &Evaluator{params: params, index: make(map[string]int)}
}

// Evaluate registers an evaluable. Names must be unique and the ingredient
// list non-empty.
func (e *Evaluator) Evaluate(name string, ingredients []string, fn mc.EvalFunc) error {
	if name == "" {
		return mc.NewConfigurationError("evaluable name is empty")
	}
	if _, ok := e.index[name]; ok {
		return mc.NewConfigurationError(fmt.Sprintf("duplicate evaluable %q", name))
	}
	if len(ingredients) == 0 {
		return mc.NewConfigurationError(fmt.Sprintf("evaluable %q has no ingredients", name))
	}
	if fn == nil {
		return mc.NewConfigurationError(fmt.Sprintf("evaluable %q has no function", name))
	}
	e.index[name] = len(e.evaluables)
	e.evaluables = append(e.evaluables, Evaluable{
		Name:        name,
		Ingredients: append([]string(nil), ingredients...),
		Func:        fn,
	})
	return nil
}

// Evaluables returns the registered evaluables in registration order.
func (e *Evaluator) Evaluables() []Evaluable {
	return e.evaluables
}

// Params returns the task parameters passed to every evaluable function.
func (e *Evaluator) Params() mc.Params {
	return e.params
}
