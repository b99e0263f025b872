package fact

import (
	"fmt"
	"sort"
)

// Op is a comparison operator in a Cmp predicate.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// ValidOp reports whether op is a known comparison operator.
func ValidOp(op Op) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Predicate is a sealed interface for constraint predicates attached to
// variables. Only Cmp, And, Or, and Not implement it.
//
// A predicate is either self-contained (no VarRef operands anywhere, can be
// evaluated immediately against a candidate entity) or cross-variable (at
// least one VarRef, must be deferred until every referenced variable is
// bound). Refs distinguishes the two.
type Predicate interface {
	pred() // Sealed - only these types implement it
}

// Cmp compares one entity field against an operand.
// Field "id" compares the entity's primary key.
type Cmp struct {
	Field string
	Op    Op
	Value Operand
}

func (Cmp) pred() {}

// And is a conjunction: all child predicates must hold.
// An empty And is vacuously true.
type And struct {
	Preds []Predicate
}

func (And) pred() {}

// Or is a disjunction: at least one child predicate must hold.
type Or struct {
	Preds []Predicate
}

func (Or) pred() {}

// Not negates its child predicate.
type Not struct {
	Pred Predicate
}

func (Not) pred() {}

// Where builds a field comparison predicate.
func Where(field string, op Op, value Operand) Cmp {
	return Cmp{Field: field, Op: op, Value: value}
}

// AndP combines predicates with logical AND. Nil arguments are dropped;
// a single survivor is returned unwrapped.
func AndP(preds ...Predicate) Predicate {
	kept := dropNil(preds)
	if len(kept) == 1 {
		return kept[0]
	}
	return And{Preds: kept}
}

// OrP combines predicates with logical OR. Nil arguments are dropped;
// a single survivor is returned unwrapped.
func OrP(preds ...Predicate) Predicate {
	kept := dropNil(preds)
	if len(kept) == 1 {
		return kept[0]
	}
	return Or{Preds: kept}
}

// NotP negates a predicate.
func NotP(p Predicate) Predicate {
	return Not{Pred: p}
}

// Distinct constrains a variable's binding to differ from another
// variable's binding. Self-unification (a variable matching the same entity
// as another) is allowed by default; attach Distinct to opt out.
//
// Example: SiblingOf excluding a person as their own sibling:
//
//	P("SiblingOf", V("person"), VW("sibling", Distinct("person")))
func Distinct(other string) Predicate {
	return Cmp{Field: "id", Op: OpNe, Value: VarRef{Name: other}}
}

func dropNil(preds []Predicate) []Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return kept
}

// Refs returns the sorted, distinct names of variables referenced by the
// predicate. An empty result means the predicate is self-contained.
func Refs(p Predicate) []string {
	seen := make(map[string]bool)
	collectRefs(p, seen)
	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectRefs(p Predicate, seen map[string]bool) {
	switch pred := p.(type) {
	case nil:
	case Cmp:
		if ref, ok := pred.Value.(VarRef); ok {
			seen[ref.Name] = true
		}
	case And:
		for _, child := range pred.Preds {
			collectRefs(child, seen)
		}
	case Or:
		for _, child := range pred.Preds {
			collectRefs(child, seen)
		}
	case Not:
		collectRefs(pred.Pred, seen)
	}
}

// SelfContained reports whether the predicate references no other variables
// and can therefore be evaluated immediately against a candidate entity.
// A nil predicate is trivially self-contained.
func SelfContained(p Predicate) bool {
	return len(Refs(p)) == 0
}

// Substitute replaces every VarRef in the predicate with the referenced
// variable's bound value. It returns an error if any referenced variable is
// unbound - callers must only substitute after the full conjunction has
// produced a binding for every referenced variable.
func Substitute(p Predicate, b Bindings) (Predicate, error) {
	switch pred := p.(type) {
	case nil:
		return nil, nil
	case Cmp:
		ref, ok := pred.Value.(VarRef)
		if !ok {
			return pred, nil
		}
		val, bound := b[ref.Name]
		if !bound {
			return nil, fmt.Errorf("substitute predicate: variable %q is unbound", ref.Name)
		}
		// Comparing against a bound entity means comparing keys.
		if er, isRef := val.(EntityRef); isRef {
			return Cmp{Field: pred.Field, Op: pred.Op, Value: String(er.Key)}, nil
		}
		return Cmp{Field: pred.Field, Op: pred.Op, Value: val}, nil
	case And:
		children, err := substituteAll(pred.Preds, b)
		if err != nil {
			return nil, err
		}
		return And{Preds: children}, nil
	case Or:
		children, err := substituteAll(pred.Preds, b)
		if err != nil {
			return nil, err
		}
		return Or{Preds: children}, nil
	case Not:
		child, err := Substitute(pred.Pred, b)
		if err != nil {
			return nil, err
		}
		return Not{Pred: child}, nil
	default:
		return nil, fmt.Errorf("substitute predicate: unknown predicate type %T", p)
	}
}

func substituteAll(preds []Predicate, b Bindings) ([]Predicate, error) {
	out := make([]Predicate, len(preds))
	for i, child := range preds {
		sub, err := Substitute(child, b)
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}
