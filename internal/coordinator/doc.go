// Package coordinator executes a job: it schedules the pending runs of all
// tasks onto a fixed number of worker groups, applies the error policy and
// merges the results once every run is done.
//
// A worker group is ranks_per_run cooperating ranks. With workers W and
// ranks_per_run R there are W/R groups, each taking one (task, run) unit
// at a time from a shared FIFO queue.
//
// Error policy:
//   - A persistence error fails only the affected run.
//   - A configuration error fails the run and skips the queued runs of the
//     same task.
//   - A desync error fails the whole run group, which is one run.
//
// Siblings of a failed run always keep running.
package coordinator
