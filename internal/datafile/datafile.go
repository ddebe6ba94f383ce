// Package datafile reads and writes per-object datafiles: plain text with
// one "Key = Value" pair per line.
package datafile

import (
	"errors"
	"fmt"
	"strings"

	"missionkit/internal/property"
)

var ErrMalformedLine = errors.New("malformed datafile line")

// Parse splits text into string-typed properties in file order. Blank lines
// are skipped; every other line must contain exactly one "=".
func Parse(text string) (*property.Properties, error) {
	props := property.New()

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, "=") != 1 {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, i+1, line)
		}
		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w %d: %q: empty key", ErrMalformedLine, i+1, line)
		}
		if err := props.Add(key, property.Property{Value: property.String(strings.TrimSpace(value))}); err != nil {
			return nil, fmt.Errorf("datafile line %d: %w", i+1, err)
		}
	}

	return props, nil
}

// Format writes props back as datafile text. Keys or values that could not
// be read back by Parse are rejected.
func Format(props *property.Properties) (string, error) {
	var b strings.Builder
	for key, prop := range props.All() {
		value := prop.Value.String()
		if strings.ContainsAny(key, "=\r\n") || strings.ContainsAny(value, "=\r\n") {
			return "", fmt.Errorf("%w: cannot write %s = %q", ErrMalformedLine, key, value)
		}
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}
	return b.String(), nil
}
