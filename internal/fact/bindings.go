package fact

import (
	"fmt"
	"sort"
)

// Bindings maps variable names to resolved values for one solution.
// Keys are unique by construction; merging fails on disagreement.
type Bindings map[string]Value

// Clone returns a shallow copy of the bindings.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// SortedNames returns the bound variable names in lexical order.
func (b Bindings) SortedNames() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BindingConflictError reports a variable bound to two different values
// while merging bindings.
type BindingConflictError struct {
	Name     string
	Existing Value
	Incoming Value
}

func (e *BindingConflictError) Error() string {
	return fmt.Sprintf("binding conflict: %s = %s vs %s",
		e.Name, FormatValue(e.Existing), FormatValue(e.Incoming))
}

// Merge unions two binding sets into a new set. It returns a
// BindingConflictError if the sets disagree on any shared variable.
// Inside the solver a conflict just prunes the candidate; only conflicts in
// caller-supplied seeds surface as errors.
func Merge(existing, delta Bindings) (Bindings, error) {
	merged := existing.Clone()
	for name, val := range delta {
		if prev, ok := merged[name]; ok {
			if !ValueEqual(prev, val) {
				return nil, &BindingConflictError{Name: name, Existing: prev, Incoming: val}
			}
			continue
		}
		merged[name] = val
	}
	return merged, nil
}
