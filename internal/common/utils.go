package common

import (
	"sort"
	"strings"
)

// OneOf returns true if s equals any of the candidates, ignoring
// surrounding whitespace.
func OneOf(s string, candidates ...string) bool {
	s = strings.TrimSpace(s)
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
