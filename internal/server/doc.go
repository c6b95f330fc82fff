// Package server exposes a job's status and results over HTTP.
//
// Every request reads the checkpoints through a read-only catalog, so the
// server can run next to the simulation of the same job.
//
//	GET /healthz
//	GET /api/status
//	GET /api/status/:task
//	GET /api/results
//	GET /api/results/:task
package server
