package fact

// Body is a sealed interface for rule bodies: a single Pattern, a
// conjunction (AllOf), or a disjunction (AnyOf). Combinators nest freely;
// evaluation flattens the tree to disjunctive normal form.
//
// This is the explicit combinator algebra form: no operator overloading,
// no heterogeneous lists - each node is a tagged variant.
type Body interface {
	body() // Sealed - Pattern, AllOf, and AnyOf implement it
}

// AllOf is a conjunction of body terms: every term must be satisfied by one
// consistent set of bindings.
type AllOf struct {
	Terms []Body
}

func (AllOf) body() {}

// AnyOf is a disjunction of body terms: each alternative is solved
// independently and all resulting bindings contribute (union, not
// short-circuit).
type AnyOf struct {
	Terms []Body
}

func (AnyOf) body() {}

// All combines body terms into a conjunction.
func All(terms ...Body) Body {
	if len(terms) == 1 {
		return terms[0]
	}
	return AllOf{Terms: terms}
}

// Any combines body terms into a disjunction.
func Any(terms ...Body) Body {
	if len(terms) == 1 {
		return terms[0]
	}
	return AnyOf{Terms: terms}
}

// Rule derives facts of the head pattern's relation from the body.
// The head relation must be inferred-flavor; registration validates this.
type Rule struct {
	Head Pattern
	Body Body
}

// NewRule builds a rule whose body is the conjunction of the given terms.
func NewRule(head Pattern, body ...Body) Rule {
	return Rule{Head: head, Body: All(body...)}
}

// Alternatives flattens the rule body into disjunctive normal form: a list
// of alternatives, each a conjunction of patterns. AnyOf nested under AllOf
// distributes (cross product), so every combinator shape reduces to this.
//
// An empty or structurally empty body yields no alternatives; registration
// rejects that before evaluation ever sees it.
func (r Rule) Alternatives() [][]Pattern {
	return dnf(r.Body)
}

func dnf(b Body) [][]Pattern {
	switch node := b.(type) {
	case nil:
		return nil
	case Pattern:
		return [][]Pattern{{node}}
	case AnyOf:
		var alts [][]Pattern
		for _, term := range node.Terms {
			alts = append(alts, dnf(term)...)
		}
		return alts
	case AllOf:
		if len(node.Terms) == 0 {
			return nil
		}
		alts := [][]Pattern{{}}
		for _, term := range node.Terms {
			childAlts := dnf(term)
			if len(childAlts) == 0 {
				return nil
			}
			var next [][]Pattern
			for _, prefix := range alts {
				for _, child := range childAlts {
					combined := make([]Pattern, 0, len(prefix)+len(child))
					combined = append(combined, prefix...)
					combined = append(combined, child...)
					next = append(next, combined)
				}
			}
			alts = next
		}
		return alts
	default:
		return nil
	}
}

// BodyRelations returns the distinct relation names appearing anywhere in
// the rule body.
func (r Rule) BodyRelations() []string {
	seen := make(map[string]bool)
	var names []string
	for _, alt := range r.Alternatives() {
		for _, p := range alt {
			if !seen[p.Relation] {
				seen[p.Relation] = true
				names = append(names, p.Relation)
			}
		}
	}
	return names
}
