// Package merge turns a job's checkpoints into its status report and its
// result artifact.
//
// Merging only loads checkpoints; it never writes to the data directory.
// It can run while the job is still running, and running it twice on the
// same checkpoints produces byte-identical artifacts.
package merge
