package measure

import (
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
)

// Shape describes an observable's samples. Scalars have Len 1.
type Shape struct {
	Scalar bool `json:"scalar"`
	Len    int  `json:"len"`
}

func (s Shape) String() string {
	if s.Scalar {
		return "scalar"
	}
	return fmt.Sprintf("vector[%d]", s.Len)
}

// Partial is the in-progress bin accumulator.
type Partial struct {
	Sum   Vec `json:"sum"`
	Count int `json:"count"`
}

// State is the persisted form of a Binner.
type State struct {
	BinSize int     `json:"binsize"`
	Shape   Shape   `json:"shape"`
	Bins    []Vec   `json:"bins"`
	Partial Partial `json:"partial"`
}

// Binner accumulates samples of one observable into fixed-size bins.
type Binner struct {
	name    string
	binSize int
	shape   Shape
	shaped  bool

	sum   []float64
	count int
	bins  []Vec
}

// NewBinner creates a binner for the named observable.
func NewBinner(name string, binSize int) (*Binner, error) {
	if binSize < 1 {
		return nil, mc.NewConfigurationError(fmt.Sprintf("observable %q: binsize must be positive, got %d", name, binSize))
	}
	return &Binner{name: name, binSize: binSize}, nil
}

// FromState restores a binner exactly as it was saved.
func FromState(name string, st State) (*Binner, error) {
	if st.BinSize < 1 {
		return nil, mc.NewConfigurationError(fmt.Sprintf("observable %q: invalid persisted binsize %d", name, st.BinSize))
	}
	b := &Binner{name: name, binSize: st.BinSize, shape: st.Shape, shaped: st.Shape.Len > 0}
	for i, bin := range st.Bins {
		if len(bin) != st.Shape.Len {
			return nil, mc.NewConfigurationError(fmt.Sprintf("observable %q: persisted bin %d has length %d, want %d", name, i, len(bin), st.Shape.Len))
		}
		b.bins = append(b.bins, bin.Clone())
	}
	if st.Partial.Count < 0 || st.Partial.Count >= st.BinSize {
		return nil, mc.NewConfigurationError(fmt.Sprintf("observable %q: invalid partial bin count %d", name, st.Partial.Count))
	}
	if st.Partial.Count > 0 {
		if len(st.Partial.Sum) != st.Shape.Len {
			return nil, mc.NewConfigurationError(fmt.Sprintf("observable %q: partial bin has length %d, want %d", name, len(st.Partial.Sum), st.Shape.Len))
		}
		b.sum = append([]float64(nil), st.Partial.Sum...)
		b.count = st.Partial.Count
	}
	return b, nil
}

// Name returns the observable name.
func (b *Binner) Name() string {
	return b.name
}

// BinSize returns the number of samples per bin.
func (b *Binner) BinSize() int {
	return b.binSize
}

// Shape returns the observable's shape. It is the zero Shape until the
// first sample arrives.
func (b *Binner) Shape() Shape {
	return b.shape
}

// Add records one sample. Returns a configuration error if the shape does
// not match earlier samples. Reports whether a bin was finalized.
func (b *Binner) Add(sample []float64, scalar bool) (bool, error) {
	shape := Shape{Scalar: scalar, Len: len(sample)}
	if shape.Len == 0 {
		return false, mc.NewConfigurationError(fmt.Sprintf("observable %q: empty sample", b.name))
	}
	if !b.shaped {
		b.shape = shape
		b.shaped = true
	} else if shape != b.shape {
		return false, mc.NewConfigurationError(fmt.Sprintf("observable %q: sample shape %s does not match %s", b.name, shape, b.shape))
	}

	if b.count == 0 {
		b.sum = make([]float64, shape.Len)
	}
	for i, v := range sample {
		b.sum[i] += v
	}
	b.count++

	if b.count < b.binSize {
		return false, nil
	}
	bin := make(Vec, shape.Len)
	for i, s := range b.sum {
		bin[i] = s / float64(b.binSize)
	}
	b.bins = append(b.bins, bin)
	b.sum = nil
	b.count = 0
	return true, nil
}

// Bins returns the finalized bins. Callers must not modify them.
func (b *Binner) Bins() []Vec {
	return b.bins
}

// Pending returns the number of samples in the in-progress bin.
func (b *Binner) Pending() int {
	return b.count
}

// State returns a deep copy of the binner's persisted form.
func (b *Binner) State() State {
	st := State{
		BinSize: b.binSize,
		Shape:   b.shape,
		Bins:    make([]Vec, len(b.bins)),
	}
	for i, bin := range b.bins {
		st.Bins[i] = bin.Clone()
	}
	if b.count > 0 {
		st.Partial = Partial{Sum: Vec(b.sum).Clone(), Count: b.count}
	}
	return st
}
