// Package enums holds the string enums that mirror Postgres enum types.
// Values read from the database or the outbox are matched exactly; values
// typed by people are trimmed and lowercased first.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

type parseMode bool

const (
	exact   parseMode = false
	lenient parseMode = true
)

func parse[T ~string](set []T, value, label string, mode parseMode) (T, error) {
	candidate := value
	if mode == lenient {
		candidate = strings.ToLower(strings.TrimSpace(value))
	}
	if slices.Contains(set, T(candidate)) {
		return T(candidate), nil
	}
	return "", fmt.Errorf("invalid %s %q", label, value)
}
