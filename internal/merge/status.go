package merge

import (
	"fmt"

	"github.com/roach88/mcjob/internal/runner"
)

// TaskStatus summarizes the progress of one task.
type TaskStatus struct {
	Task string `json:"task"`
	// Runs is the number of replicas of the task.
	Runs         int `json:"runs"`
	RunsStarted  int `json:"runs_started"`
	RunsDone     int `json:"runs_done"`
	RunsWithData int `json:"runs_with_data"`

	// SweepsCompleted sums the measurement sweeps of all runs, capped at
	// the target of each run.
	SweepsCompleted int64 `json:"sweeps_completed"`
	TargetSweeps    int64 `json:"target_sweeps"`

	// ThermalizedFraction is the thermalization done over all runs divided
	// by runs times thermalization. Without thermalization a run counts as
	// thermalized once it has started, so the fraction is RunsStarted/Runs.
	ThermalizedFraction float64 `json:"thermalized_fraction"`

	Errors []string `json:"errors,omitempty"`
}

// Done reports whether every run reached its sweep target.
func (s TaskStatus) Done() bool {
	return s.Runs > 0 && s.RunsDone == s.Runs && len(s.Errors) == 0
}

// Status computes the progress of every task from collected data.
func Status(data []TaskData) []TaskStatus {
	out := make([]TaskStatus, 0, len(data))
	for _, td := range data {
		out = append(out, taskStatus(td))
	}
	return out
}

func taskStatus(td TaskData) TaskStatus {
	st := TaskStatus{Task: td.Task.Name, Runs: len(td.Runs)}

	settings, err := runner.ParseSettings(td.Task.Params)
	if err != nil {
		st.Errors = append(st.Errors, err.Error())
		return st
	}

	st.TargetSweeps = settings.Sweeps * int64(st.Runs)
	var thermDone int64
	for _, rd := range td.Runs {
		if rd.Err != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("run %d: %v", rd.Run, rd.Err))
			continue
		}
		if rd.Snapshot == nil {
			continue
		}
		st.RunsStarted++
		if rd.HasBins() {
			st.RunsWithData++
		}
		thermDone += min(rd.Snapshot.ThermalizationDone, settings.Thermalization)
		st.SweepsCompleted += min(rd.Snapshot.MeasurementDone, settings.Sweeps)
		if rd.Snapshot.MeasurementDone >= settings.Sweeps {
			st.RunsDone++
		}
	}

	switch {
	case st.Runs == 0:
	case settings.Thermalization == 0:
		st.ThermalizedFraction = float64(st.RunsStarted) / float64(st.Runs)
	default:
		st.ThermalizedFraction = float64(thermDone) / float64(int64(st.Runs)*settings.Thermalization)
	}
	return st
}
