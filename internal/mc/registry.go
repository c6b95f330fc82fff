package mc

import (
	"fmt"
	"sort"
)

// Registry maps model names to models.
//
// A Registry is built by the program that embeds mcjob and passed to the
// coordinator explicitly; there is no process-wide registry.
type Registry struct {
	models map[string]Model
}

// NewRegistry creates a registry holding the given models.
// Panics on duplicate names, which are a programming error.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a model. Returns an error if the name is already taken.
func (r *Registry) Register(m Model) error {
	name := m.Name()
	if name == "" {
		return fmt.Errorf("model name is empty")
	}
	if _, ok := r.models[name]; ok {
		return fmt.Errorf("duplicate model %q", name)
	}
	r.models[name] = m
	return nil
}

// Lookup returns the model registered under name.
func (r *Registry) Lookup(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("unknown model %q (registered: %v)", name, r.Names()))
	}
	return m, nil
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
