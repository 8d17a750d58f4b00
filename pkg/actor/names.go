package actor

import (
	"strings"

	"golang.org/x/text/cases"
)

// NameKey normalizes a name for case-insensitive matching.
// Full Unicode case folding is used so that matching does not depend on locale.
func NameKey(name string) string {
	// cases.Caser is stateful, so one is built per call.
	return cases.Fold().String(strings.TrimSpace(name))
}

// NameSet is an index of normalized names.
type NameSet map[string]struct{}

// NewNameSet builds a NameSet from raw names. Blank names are skipped.
func NewNameSet(names []string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		key := NameKey(n)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// Has reports whether name matches an entry of the set, ignoring case.
func (s NameSet) Has(name string) bool {
	_, ok := s[NameKey(name)]
	return ok
}
