package cty

import (
	"slices"
	"unicode/utf16"
)

// sortedKeys returns map keys in canonical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// SortedKeys returns the keys of m in canonical order: UTF-16 code units, as
// RFC 8785 orders object members. Go's native string order compares UTF-8
// bytes and disagrees for characters outside the BMP.
func SortedKeys[V any](m map[string]V) []string {
	return sortedKeys(m)
}

// compareKeysUTF16 compares strings by UTF-16 code units.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
