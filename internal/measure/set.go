package measure

import (
	"fmt"
	"sort"
)

// Set holds the binners of one run, keyed by observable name.
type Set struct {
	binSize int
	binners map[string]*Binner
}

// NewSet creates an empty set whose observables use binSize.
func NewSet(binSize int) *Set {
	return &Set{binSize: binSize, binners: make(map[string]*Binner)}
}

// SetFromStates restores a set from persisted binner states.
func SetFromStates(binSize int, states map[string]State) (*Set, error) {
	s := NewSet(binSize)
	for name, st := range states {
		b, err := FromState(name, st)
		if err != nil {
			return nil, err
		}
		s.binners[name] = b
	}
	return s, nil
}

// Add routes a sample to the named observable, creating its binner on
// first use.
func (s *Set) Add(name string, sample []float64, scalar bool) error {
	if name == "" {
		return fmt.Errorf("observable name is empty")
	}
	b, ok := s.binners[name]
	if !ok {
		var err error
		b, err = NewBinner(name, s.binSize)
		if err != nil {
			return err
		}
		s.binners[name] = b
	}
	_, err := b.Add(sample, scalar)
	return err
}

// Names returns the observable names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.binners))
	for name := range s.binners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the binner for name.
func (s *Set) Get(name string) (*Binner, bool) {
	b, ok := s.binners[name]
	return b, ok
}

// States returns the persisted form of every binner.
func (s *Set) States() map[string]State {
	out := make(map[string]State, len(s.binners))
	for name, b := range s.binners {
		out[name] = b.State()
	}
	return out
}
