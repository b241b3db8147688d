// Package enums holds the closed string sets persisted in the database and
// exchanged over the API. Values are case sensitive.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind, value string, valid []T) (T, error) {
	if v := T(value); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
