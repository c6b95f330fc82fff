package mc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Int(t *testing.T) {
	p := Params{
		"int":    10,
		"int64":  int64(11),
		"uint64": uint64(12),
		"float":  13.0,
		"frac":   1.5,
		"num":    json.Number("14"),
		"str":    "15",
	}

	for key, want := range map[string]int64{"int": 10, "int64": 11, "uint64": 12, "float": 13, "num": 14} {
		got, err := p.Int(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := p.Int("frac")
	assert.Error(t, err)
	_, err = p.Int("str")
	assert.Error(t, err)
	_, err = p.Int("missing")
	assert.Error(t, err)
}

func TestParams_Uint64(t *testing.T) {
	p := Params{
		"big": json.Number("18446744073709551615"),
		"u":   uint64(1 << 63),
		"i":   42,
		"neg": -1,
	}

	got, err := p.Uint64("big")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), got)

	got, err = p.Uint64("u")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), got)

	got, err = p.Uint64("i")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	_, err = p.Uint64("neg")
	assert.Error(t, err)
}

func TestParams_FloatAndString(t *testing.T) {
	p := Params{"T": 2.269, "L": 8, "name": "ising", "num": json.Number("0.5")}

	f, err := p.Float("T")
	require.NoError(t, err)
	assert.Equal(t, 2.269, f)

	f, err = p.Float("L")
	require.NoError(t, err)
	assert.Equal(t, 8.0, f)

	f, err = p.Float("num")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	_, err = p.Float("name")
	assert.Error(t, err)

	s, err := p.String("name")
	require.NoError(t, err)
	assert.Equal(t, "ising", s)

	s, err = p.StringOr("rng", "xoshiro256ss")
	require.NoError(t, err)
	assert.Equal(t, "xoshiro256ss", s)

	_, err = p.StringOr("L", "x")
	assert.Error(t, err)
}

func TestParams_CloneAndKeys(t *testing.T) {
	p := Params{"b": 1, "a": 2}
	c := p.Clone()
	c["c"] = 3

	assert.Equal(t, []string{"a", "b"}, p.Keys())
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
}

func TestParams_EqualExcept(t *testing.T) {
	p := Params{"L": 8, "T": 2.5, "sweeps": 1000}
	q := Params{"L": 8.0, "T": 2.5, "sweeps": 5000}

	eq, err := p.EqualExcept(q, ParamSweeps)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = p.EqualExcept(q)
	require.NoError(t, err)
	assert.False(t, eq)

	q["T"] = 3.0
	eq, err = p.EqualExcept(q, ParamSweeps)
	require.NoError(t, err)
	assert.False(t, eq)
}
