package job

import (
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
)

// TaskMaker builds task lists programmatically. Parameters set on the
// maker are inherited by every task created afterwards, so a sweep over
// one parameter reads naturally:
//
//	tm := job.NewTaskMaker()
//	tm.Set("sweeps", 10000).Set("thermalization", 1000).Set("binsize", 100)
//	for _, rho := range []float64{0, 0.5, 0.9} {
//		tm.Task(fmt.Sprintf("rho=%v", rho), mc.Params{"rho": rho})
//	}
type TaskMaker struct {
	defaults mc.Params
	tasks    []Task
}

// NewTaskMaker creates an empty maker.
func NewTaskMaker() *TaskMaker {
	return &TaskMaker{defaults: mc.Params{}}
}

// Set sets an inherited parameter.
func (m *TaskMaker) Set(key string, value any) *TaskMaker {
	m.defaults[key] = value
	return m
}

// Task appends a task with the inherited parameters overlaid by params.
// An empty name is replaced by "task<n>".
func (m *TaskMaker) Task(name string, params mc.Params) *TaskMaker {
	p := m.defaults.Clone()
	for k, v := range params {
		p[k] = v
	}
	if name == "" {
		name = fmt.Sprintf("task%04d", len(m.tasks)+1)
	}
	m.tasks = append(m.tasks, Task{Name: NormalizeName(name), Params: p})
	return m
}

// Tasks returns the tasks created so far.
func (m *TaskMaker) Tasks() []Task {
	return append([]Task(nil), m.tasks...)
}

// Job assembles a job rooted in dir from the tasks created so far and
// validates it.
func (m *TaskMaker) Job(name, model, dir string, settings Settings) (*Job, error) {
	name = NormalizeName(name)
	j := &Job{
		Name:     name,
		Model:    model,
		Settings: settings,
		Tasks:    m.Tasks(),
		Layout:   Layout{Dir: dir, Name: name},
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}
