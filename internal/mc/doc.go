// Package mc defines the contract between the mcjob runtime and a
// user-supplied Monte Carlo algorithm.
//
// A Model is a factory for one simulated system. It creates Algorithm
// instances (one per run and rank) and registers the evaluables that are
// derived from its observables after the simulation is over.
//
// The runtime hands every Algorithm a Context through which it draws random
// numbers, reports measurement samples and asks whether the run is
// thermalized. Algorithms never see checkpoint files, bins or other runs.
//
// The package also holds the error taxonomy shared by all other packages
// (see Error) and the task parameter mapping (see Params).
package mc
