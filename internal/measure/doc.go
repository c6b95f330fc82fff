// Package measure accumulates raw measurement samples into bins.
//
// A Binner owns one observable. Samples are summed until binsize of them
// have been seen, then the componentwise mean is appended to the finalized
// bin sequence and the accumulator is reset. Finalized bins are immutable
// and only ever appended. The in-progress accumulator is exposed solely
// through State so that checkpoints can persist it exactly.
//
// A Set groups the binners of one run and routes reports by name.
package measure
