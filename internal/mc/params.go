package mc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Well-known parameter keys.
const (
	ParamSweeps         = "sweeps"
	ParamThermalization = "thermalization"
	ParamBinSize        = "binsize"
	ParamRNG            = "rng"
	ParamSeed           = "seed"
	ParamFloatType      = "float_type"
)

// Params is a task's parameter mapping.
//
// Values come from CUE, YAML or JSON decoders, so numbers may arrive as any
// Go integer type, float64 or json.Number. The accessors normalize them.
type Params map[string]any

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int returns key as an integer. Non-integral numbers are an error.
func (p Params) Int(key string) (int64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("parameter %q is not set", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("parameter %q overflows int64", key)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("parameter %q is not an integer: %v", key, n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("parameter %q is not an integer: %w", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("parameter %q has type %T, want integer", key, v)
	}
}

// Uint64 returns key as an unsigned integer. Used for seeds.
func (p Params) Uint64(key string) (uint64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("parameter %q is not set", key)
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q is not an unsigned integer: %w", key, err)
		}
		return u, nil
	}
	i, err := p.Int(key)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("parameter %q is negative", key)
	}
	return uint64(i), nil
}

// Float returns key as a float64.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("parameter %q is not set", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("parameter %q is not a number: %w", key, err)
		}
		return f, nil
	}
	i, err := p.Int(key)
	if err != nil {
		return 0, fmt.Errorf("parameter %q has type %T, want number", key, v)
	}
	return float64(i), nil
}

// String returns key as a string.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("parameter %q is not set", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q has type %T, want string", key, v)
	}
	return s, nil
}

// StringOr returns key as a string, or def if it is not set.
func (p Params) StringOr(key, def string) (string, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.String(key)
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EqualExcept reports whether p and q hold the same values for every key
// except the ones listed. Values are compared by their JSON encoding so an
// int 10 equals a float64 10 read back from a parameters file.
func (p Params) EqualExcept(q Params, except ...string) (bool, error) {
	a, err := canonicalParams(p, except)
	if err != nil {
		return false, err
	}
	b, err := canonicalParams(q, except)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

func canonicalParams(p Params, except []string) (string, error) {
	filtered := make(map[string]any, len(p))
	for k, v := range p {
		skip := false
		for _, e := range except {
			if k == e {
				skip = true
				break
			}
		}
		if !skip {
			filtered[k] = v
		}
	}
	// encoding/json sorts map keys.
	data, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("encode parameters: %w", err)
	}
	return string(data), nil
}
