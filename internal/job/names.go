package job

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the NFC form of a job or task name, so that names
// typed with combining characters map to the same directory.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// ValidateName checks that a name can be used as a single path element.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	case !norm.NFC.IsNormalString(name):
		return fmt.Errorf("name %q is not NFC normalized", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name %q contains a control character", name)
		}
	}
	return nil
}
