package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a job-file duration. It accepts seconds as a number, the
// clock form "[[hh:]mm:]ss" or Go duration syntax such as "1h30m".
type Duration time.Duration

// ParseDuration parses the textual forms accepted by Duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q: want [[hh:]mm:]ss", s)
	}
	var total time.Duration
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: want [[hh:]mm:]ss", s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid duration %q: field %q out of range", s, p)
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case string:
		p, err := ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(p)
	case float64:
		if x < 0 {
			return fmt.Errorf("negative duration %v", x)
		}
		*d = Duration(x * float64(time.Second))
	case int:
		if x < 0 {
			return fmt.Errorf("negative duration %v", x)
		}
		*d = Duration(time.Duration(x) * time.Second)
	default:
		return fmt.Errorf("invalid duration of type %T", v)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.set(v)
}
