package measure

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Vec is a float vector whose JSON form preserves every float64 bit
// pattern that matters for checkpoints, including NaN and infinities,
// which are encoded as the strings "NaN", "+Inf" and "-Inf".
type Vec []float64

// MarshalJSON implements json.Marshaler.
func (v Vec) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 2+len(v)*8)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case math.IsNaN(f):
			buf = append(buf, `"NaN"`...)
		case math.IsInf(f, 1):
			buf = append(buf, `"+Inf"`...)
		case math.IsInf(f, -1):
			buf = append(buf, `"-Inf"`...)
		default:
			buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Vec) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode vector: %w", err)
	}
	out := make(Vec, len(raw))
	for i, r := range raw {
		if len(r) > 0 && r[0] == '"' {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return fmt.Errorf("decode vector[%d]: %w", i, err)
			}
			switch s {
			case "NaN":
				out[i] = math.NaN()
			case "+Inf":
				out[i] = math.Inf(1)
			case "-Inf":
				out[i] = math.Inf(-1)
			default:
				return fmt.Errorf("decode vector[%d]: invalid float %q", i, s)
			}
			continue
		}
		f, err := strconv.ParseFloat(string(r), 64)
		if err != nil {
			return fmt.Errorf("decode vector[%d]: %w", i, err)
		}
		out[i] = f
	}
	*v = out
	return nil
}

// Clone returns a copy of v.
func (v Vec) Clone() Vec {
	if v == nil {
		return nil
	}
	c := make(Vec, len(v))
	copy(c, v)
	return c
}
