// Package rng provides deterministic, checkpointable random streams.
//
// A Stream wraps one selectable generator. Its complete state can be saved
// and restored; the same kind, seed and restore point reproduce the same
// future sequence bit for bit.
package rng

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Kind selects the generator algorithm.
type Kind string

const (
	// KindXoshiro is xoshiro256**. It is the default.
	KindXoshiro Kind = "xoshiro256ss"
	// KindPCG is PCG-DXSM from math/rand/v2.
	KindPCG Kind = "pcg"
	// KindChaCha8 is the ChaCha8 generator from math/rand/v2.
	KindChaCha8 Kind = "chacha8"
)

// DefaultKind is used when a task does not select a generator.
const DefaultKind = KindXoshiro

// Kinds lists the supported generators.
var Kinds = []Kind{KindXoshiro, KindPCG, KindChaCha8}

// ParseKind validates a generator name. The empty string selects DefaultKind.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return DefaultKind, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown rng %q: must be one of %v", s, Kinds)
}

// Source is a generator whose state can be serialized.
type Source interface {
	rand.Source
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// State is the serialized state of a Stream.
type State struct {
	Kind Kind   `json:"kind"`
	Data []byte `json:"state"`
}

// Stream is a random stream for one run (or one rank of a run).
//
// Not safe for concurrent use; a run is driven by a single goroutine.
type Stream struct {
	kind Kind
	src  Source
	r    *rand.Rand
}

// New creates a stream of the given kind seeded from seed.
func New(kind Kind, seed uint64) (*Stream, error) {
	src, err := newSource(kind, seed)
	if err != nil {
		return nil, err
	}
	return &Stream{kind: kind, src: src, r: rand.New(src)}, nil
}

// Restore recreates a stream from a saved state.
func Restore(st State) (*Stream, error) {
	s, err := New(st.Kind, 0)
	if err != nil {
		return nil, err
	}
	if err := s.RestoreState(st); err != nil {
		return nil, err
	}
	return s, nil
}

func newSource(kind Kind, seed uint64) (Source, error) {
	sm := splitMix{state: seed}
	switch kind {
	case KindXoshiro:
		x := &Xoshiro256{}
		x.Seed(seed)
		return x, nil
	case KindPCG:
		return rand.NewPCG(sm.next(), sm.next()), nil
	case KindChaCha8:
		var key [32]byte
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint64(key[i*8:], sm.next())
		}
		return rand.NewChaCha8(key), nil
	default:
		return nil, fmt.Errorf("unknown rng %q", kind)
	}
}

// Kind returns the generator kind.
func (s *Stream) Kind() Kind {
	return s.kind
}

// Rand returns the *rand.Rand view of the stream. math/rand/v2 keeps no
// state outside the source, so saving the source captures everything.
func (s *Stream) Rand() *rand.Rand {
	return s.r
}

// Next returns the next 64 random bits.
func (s *Stream) Next() uint64 {
	return s.src.Uint64()
}

// SaveState serializes the generator state.
func (s *Stream) SaveState() (State, error) {
	data, err := s.src.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("save %s state: %w", s.kind, err)
	}
	return State{Kind: s.kind, Data: data}, nil
}

// RestoreState replaces the generator state. The kind must match.
func (s *Stream) RestoreState(st State) error {
	if st.Kind != s.kind {
		return fmt.Errorf("restore rng state: kind %q does not match stream kind %q", st.Kind, s.kind)
	}
	if err := s.src.UnmarshalBinary(st.Data); err != nil {
		return fmt.Errorf("restore %s state: %w", s.kind, err)
	}
	return nil
}

// Derive returns the seed for sub-stream index of a base seed. Different
// indices give independent looking but reproducible seeds.
func Derive(seed, index uint64) uint64 {
	sm := splitMix{state: seed ^ (index+1)*0x9e3779b97f4a7c15}
	sm.next()
	return sm.next()
}

// splitMix is SplitMix64, used only to expand seeds.
type splitMix struct {
	state uint64
}

func (s *splitMix) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
