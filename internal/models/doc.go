// Package models holds small built-in models. They exercise the runtime
// end to end and serve as templates for real simulations.
package models

import "github.com/roach88/mcjob/internal/mc"

// Registry returns a registry holding every built-in model.
func Registry() *mc.Registry {
	return mc.NewRegistry(Constant{}, Gaussian{})
}
