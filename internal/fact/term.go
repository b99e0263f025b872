package fact

import "fmt"

// Term is a sealed interface for one position of a fact pattern: either a
// concrete entity reference (Const) or a named variable (Var).
type Term interface {
	term() // Sealed - only Const and Var implement it
}

// Const is a concrete term: the pattern position must equal this entity.
type Const struct {
	Ref EntityRef
}

func (Const) term() {}

// Var is a variable term: a named placeholder, optionally constrained by a
// predicate over the candidate entity's fields.
//
// Variable identity is the name: two occurrences of the same name within one
// conjunction denote the same logical value and must bind identically.
type Var struct {
	Name  string
	Where Predicate // nil = unconstrained
}

func (Var) term() {}

// C builds a Const term for the given entity type and key.
func C(entityType, key string) Const {
	return Const{Ref: EntityRef{Type: entityType, Key: key}}
}

// V builds an unconstrained variable term.
func V(name string) Var {
	return Var{Name: name}
}

// VW builds a variable term carrying a constraint predicate.
func VW(name string, where Predicate) Var {
	return Var{Name: name, Where: where}
}

// Pattern is a fact template: a relation name plus subject and object terms.
// Patterns are used both to query and to define rule heads and bodies.
type Pattern struct {
	Relation string
	Subject  Term
	Object   Term
}

func (Pattern) body() {} // a lone pattern is a valid rule body

// P builds a pattern.
func P(relation string, subject, object Term) Pattern {
	return Pattern{Relation: relation, Subject: subject, Object: object}
}

// Vars returns the variable terms of the pattern in subject, object order.
func (p Pattern) Vars() []Var {
	var vars []Var
	if v, ok := p.Subject.(Var); ok {
		vars = append(vars, v)
	}
	if v, ok := p.Object.(Var); ok {
		vars = append(vars, v)
	}
	return vars
}

// VarNames returns the distinct variable names of the pattern.
func (p Pattern) VarNames() []string {
	var names []string
	seen := make(map[string]bool, 2)
	for _, v := range p.Vars() {
		if !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}
	return names
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s(%s, %s)", p.Relation, formatTerm(p.Subject), formatTerm(p.Object))
}

func formatTerm(t Term) string {
	switch term := t.(type) {
	case Const:
		return term.Ref.Key
	case Var:
		if term.Where != nil {
			return "?" + term.Name + "[…]"
		}
		return "?" + term.Name
	default:
		return fmt.Sprintf("<%T>", t)
	}
}

// Fact is a concrete stored or derived fact: a relation name plus the
// subject and object entity keys. Equality and map identity are defined by
// the full triple, matching the store's UNIQUE(subject, object) constraint.
type Fact struct {
	Relation string
	Subject  string
	Object   string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s, %s)", f.Relation, f.Subject, f.Object)
}

// F builds a concrete fact.
func F(relation, subject, object string) Fact {
	return Fact{Relation: relation, Subject: subject, Object: object}
}
