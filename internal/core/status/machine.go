// Package status provides the one-step transition table shared by the
// order and execution state machines.
package status

import (
	"fmt"
	"sort"

	"mecanix/internal/core/apperror"
)

// Machine validates transitions against a static adjacency table.
// Each status maps to the set of statuses reachable in exactly one step;
// terminal statuses map to an empty set. Tables never loop back to an
// earlier status.
type Machine[S ~string] struct {
	table map[S][]S
}

// NewMachine builds a Machine from an adjacency table. The table is copied,
// so callers may reuse the literal.
func NewMachine[S ~string](table map[S][]S) *Machine[S] {
	copied := make(map[S][]S, len(table))
	for from, targets := range table {
		copied[from] = append([]S(nil), targets...)
	}
	return &Machine[S]{table: copied}
}

// ValidateTransition returns nil when target is reachable from current in
// one step, or an INVALID_STATUS_TRANSITION error carrying the allowed set.
func (m *Machine[S]) ValidateTransition(current, target S) error {
	allowed, known := m.table[current]
	if !known {
		return apperror.NewValidation(fmt.Sprintf("unknown status %s", current)).
			WithDetail("status", string(current))
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return apperror.NewInvalidStatusTransition(string(current), string(target), toStrings(allowed))
}

// IsValidTransition wraps ValidateTransition and never returns an error:
// any rejection collapses to false.
func (m *Machine[S]) IsValidTransition(current, target S) bool {
	return m.ValidateTransition(current, target) == nil
}

// AllowedTransitions returns the statuses reachable from current in one
// step, sorted for stable output. Terminal statuses yield an empty slice.
func (m *Machine[S]) AllowedTransitions(current S) []S {
	allowed := append([]S(nil), m.table[current]...)
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	return allowed
}

// IsTerminal reports whether current has no outgoing transitions.
func (m *Machine[S]) IsTerminal(current S) bool {
	return len(m.table[current]) == 0
}

func toStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	sort.Strings(out)
	return out
}
