package engine

import (
	"fmt"

	"github.com/syllog/syllog/internal/fact"
)

// propagate shares constraints across occurrences of the same variable in a
// conjunction: after propagation every occurrence of a variable carries the
// conjunction of that variable's self-contained predicates from all its
// occurrences, so the solver can prune at whichever occurrence binds first.
//
// Cross-variable predicates are excluded from sharing and stay attached to
// their original occurrence. Shared components are deduplicated, which makes
// propagation idempotent: a second application is a no-op.
func propagate(patterns []fact.Pattern) []fact.Pattern {
	shared := make(map[string][]fact.Predicate)
	seen := make(map[string]map[string]bool)

	for _, p := range patterns {
		for _, v := range p.Vars() {
			for _, component := range selfComponents(v.Where) {
				key := predKey(component)
				if seen[v.Name] == nil {
					seen[v.Name] = make(map[string]bool)
				}
				if seen[v.Name][key] {
					continue
				}
				seen[v.Name][key] = true
				shared[v.Name] = append(shared[v.Name], component)
			}
		}
	}

	out := make([]fact.Pattern, len(patterns))
	for i, p := range patterns {
		out[i] = fact.Pattern{
			Relation: p.Relation,
			Subject:  propagateTerm(p.Subject, shared),
			Object:   propagateTerm(p.Object, shared),
		}
	}
	return out
}

func propagateTerm(t fact.Term, shared map[string][]fact.Predicate) fact.Term {
	v, ok := t.(fact.Var)
	if !ok {
		return t
	}
	merged := append([]fact.Predicate(nil), shared[v.Name]...)
	merged = append(merged, crossComponents(v.Where)...)
	if len(merged) == 0 {
		return fact.Var{Name: v.Name}
	}
	return fact.Var{Name: v.Name, Where: fact.AndP(merged...)}
}

// selfComponents flattens top-level conjunctions and keeps the
// self-contained components.
func selfComponents(p fact.Predicate) []fact.Predicate {
	var out []fact.Predicate
	for _, c := range flattenAnd(p) {
		if fact.SelfContained(c) {
			out = append(out, c)
		}
	}
	return out
}

// crossComponents keeps the components that reference other variables.
func crossComponents(p fact.Predicate) []fact.Predicate {
	var out []fact.Predicate
	for _, c := range flattenAnd(p) {
		if !fact.SelfContained(c) {
			out = append(out, c)
		}
	}
	return out
}

func flattenAnd(p fact.Predicate) []fact.Predicate {
	switch pred := p.(type) {
	case nil:
		return nil
	case fact.And:
		var out []fact.Predicate
		for _, child := range pred.Preds {
			out = append(out, flattenAnd(child)...)
		}
		return out
	default:
		return []fact.Predicate{p}
	}
}

// predKey renders a predicate for structural deduplication.
func predKey(p fact.Predicate) string {
	return fmt.Sprintf("%#v", p)
}
