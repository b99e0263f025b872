package engine

import (
	"github.com/syllog/syllog/internal/fact"
)

// pendingCheck is a variable constraint captured during unification, to be
// evaluated against the store once its referenced variables are bound. For a
// self-contained predicate that happens immediately; for a cross-variable
// predicate it waits until the conjunction binds the referenced variables.
type pendingCheck struct {
	Ref  fact.EntityRef
	Pred fact.Predicate
}

// refsBound reports whether every variable the predicate references is bound.
func (c pendingCheck) refsBound(b fact.Bindings) bool {
	for _, name := range fact.Refs(c.Pred) {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}

// unify matches a pattern against a concrete fact. On success it returns the
// delta bindings introduced by the pattern's variables and the constraint
// checks those variables carry. ok is false when the fact cannot match:
// a constant term disagrees, or one variable name would need two different
// entities within this single pattern.
//
// Conflicts against previously bound variables are the caller's concern;
// the returned delta is merged with fact.Merge, which detects them.
func unify(schema *fact.Schema, p fact.Pattern, f fact.Fact) (delta fact.Bindings, checks []pendingCheck, ok bool) {
	delta = make(fact.Bindings, 2)

	positions := []struct {
		term fact.Term
		key  string
		pos  string
	}{
		{p.Subject, f.Subject, "subject"},
		{p.Object, f.Object, "object"},
	}

	for _, slot := range positions {
		switch term := slot.term.(type) {
		case fact.Const:
			if term.Ref.Key != slot.key {
				return nil, nil, false
			}
		case fact.Var:
			entityType, err := schema.TermType(p.Relation, slot.pos)
			if err != nil {
				return nil, nil, false
			}
			ref := fact.EntityRef{Type: entityType, Key: slot.key}
			if prev, bound := delta[term.Name]; bound {
				// Same variable in both positions of one pattern.
				if !fact.ValueEqual(prev, ref) {
					return nil, nil, false
				}
			} else {
				delta[term.Name] = ref
			}
			if term.Where != nil {
				checks = append(checks, pendingCheck{Ref: ref, Pred: term.Where})
			}
		default:
			return nil, nil, false
		}
	}

	return delta, checks, true
}

// groundKeys resolves the subject and object keys of a pattern under the
// current bindings. An empty key means the position is unconstrained and the
// corpus must enumerate candidates for it.
func groundKeys(p fact.Pattern, b fact.Bindings) (subject, object string) {
	return groundTerm(p.Subject, b), groundTerm(p.Object, b)
}

func groundTerm(t fact.Term, b fact.Bindings) string {
	switch term := t.(type) {
	case fact.Const:
		return term.Ref.Key
	case fact.Var:
		if val, ok := b[term.Name]; ok {
			if ref, isRef := val.(fact.EntityRef); isRef {
				return ref.Key
			}
		}
	}
	return ""
}
