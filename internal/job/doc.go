// Package job defines jobs and tasks, loads job files and lays out a job's
// data on disk.
//
// A job file is CUE or YAML:
//
//	name: "gauss"
//	model: "gaussian"
//	checkpoint_time: "15:00"
//	run_time: "2:00:00"
//	runs_per_task: 2
//	defaults: {sweeps: 10000, thermalization: 1000, binsize: 100}
//	tasks: [for rho in [0.0, 0.5, 0.9] {name: "rho=\(rho)", params: {rho: rho}}]
//
// CUE files may use comprehensions to generate task lists. Task parameters
// are the job defaults overlaid with the task's own parameters.
package job
