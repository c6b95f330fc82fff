package stats

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
)

// Result holds the statistics of one task.
type Result struct {
	Observables map[string]Estimate
	Evaluables  map[string]Estimate
}

// Engine computes task statistics from the checkpointed bins of its runs.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Compute pools the bins of all runs, analyzes every observable and
// evaluates every registered evaluable.
//
// runs holds one observable map per run; runs without data contribute
// nothing. Insufficient data marks single estimates unavailable. A shape
// mismatch between runs is returned as a configuration error.
func (e *Engine) Compute(runs []map[string]measure.State, ev *Evaluator) (*Result, error) {
	series, err := e.pool(runs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Observables: make(map[string]Estimate, len(series)),
		Evaluables:  make(map[string]Estimate),
	}

	for name, s := range series {
		est, err := Analyze(s, e.opts)
		if err != nil {
			if !mc.IsInsufficientDataError(err) {
				return nil, fmt.Errorf("observable %q: %w", name, err)
			}
			slog.Debug("observable unavailable", "observable", name, "reason", err)
			res.Observables[name] = Unavailable(name, err)
			continue
		}
		res.Observables[name] = est
	}

	if ev == nil {
		return res, nil
	}
	for _, evb := range ev.Evaluables() {
		res.Evaluables[evb.Name] = e.evaluate(evb, ev.Params(), series)
	}
	return res, nil
}

func (e *Engine) pool(runs []map[string]measure.State) (map[string]*Series, error) {
	names := map[string]struct{}{}
	for _, run := range runs {
		for name := range run {
			names[name] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	out := make(map[string]*Series, len(sorted))
	for _, name := range sorted {
		perRun := make([]measure.State, 0, len(runs))
		for _, run := range runs {
			if st, ok := run[name]; ok {
				perRun = append(perRun, st)
			}
		}
		s, err := Pool(name, perRun)
		if err != nil {
			return nil, err
		}
		if e.opts.Float32 {
			s = s.roundFloat32()
		}
		out[name] = s
	}
	return out, nil
}

func (e *Engine) evaluate(evb Evaluable, params mc.Params, series map[string]*Series) Estimate {
	if _, clash := series[evb.Name]; clash {
		return Unavailable(evb.Name, mc.NewConfigurationError(fmt.Sprintf("evaluable %q has the name of a measured observable", evb.Name)))
	}
	ingredients := make([]*Series, len(evb.Ingredients))
	for i, name := range evb.Ingredients {
		s, ok := series[name]
		if !ok {
			return Unavailable(evb.Name, mc.NewInsufficientDataError(fmt.Sprintf("evaluable %q: ingredient %q was never measured", evb.Name, name)))
		}
		ingredients[i] = s
	}
	est, err := Jackknife(evb.Name, params, evb.Func, ingredients, e.opts)
	if err != nil {
		slog.Debug("evaluable unavailable", "evaluable", evb.Name, "reason", err)
		return Unavailable(evb.Name, err)
	}
	return est
}
