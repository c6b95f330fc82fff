package rng

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

const xoshiroMagic = "xsr:"

// Xoshiro256 implements xoshiro256** (Blackman and Vigna).
type Xoshiro256 struct {
	s [4]uint64
}

// Seed expands seed into the 256-bit state with SplitMix64.
func (x *Xoshiro256) Seed(seed uint64) {
	sm := splitMix{state: seed}
	for i := range x.s {
		x.s[i] = sm.next()
	}
}

// Uint64 returns the next value.
func (x *Xoshiro256) Uint64() uint64 {
	s := &x.s
	result := bits.RotateLeft64(s[1]*5, 7) * 9
	t := s[1] << 17
	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]
	s[2] ^= t
	s[3] = bits.RotateLeft64(s[3], 45)
	return result
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (x *Xoshiro256) MarshalBinary() ([]byte, error) {
	b := make([]byte, len(xoshiroMagic), len(xoshiroMagic)+32)
	copy(b, xoshiroMagic)
	for _, v := range x.s {
		b = binary.LittleEndian.AppendUint64(b, v)
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (x *Xoshiro256) UnmarshalBinary(data []byte) error {
	if len(data) != len(xoshiroMagic)+32 || string(data[:len(xoshiroMagic)]) != xoshiroMagic {
		return errors.New("invalid xoshiro256 state")
	}
	data = data[len(xoshiroMagic):]
	var s [4]uint64
	for i := range s {
		s[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	if s == [4]uint64{} {
		return errors.New("invalid xoshiro256 state: all zero")
	}
	x.s = s
	return nil
}
