package engine

import (
	"context"

	"github.com/syllog/syllog/internal/fact"
)

// queryCorpus answers candidate lookups for one query invocation. Storable
// relations read through to the store; inferred relations are derived on
// first touch and memoized for the rest of the query.
//
// Derivation strategy per inferred relation:
//   - recursive relations (appearing in their own closure's rule bodies) and
//     unconstrained lookups derive the full closure once
//   - non-recursive lookups with a grounded key derive only the matching
//     facts, seeded from the key
type queryCorpus struct {
	eng      *Engine
	full     map[string]map[fact.Fact]bool
	complete map[string]bool
	targeted map[string][]fact.Fact
}

func newQueryCorpus(e *Engine) *queryCorpus {
	return &queryCorpus{
		eng:      e,
		full:     make(map[string]map[fact.Fact]bool),
		complete: make(map[string]bool),
		targeted: make(map[string][]fact.Fact),
	}
}

func (c *queryCorpus) candidates(ctx context.Context, relation, subject, object string) ([]fact.Fact, error) {
	rel, ok := c.eng.schema.Relation(relation)
	if !ok {
		return nil, &EvalError{Code: ErrCodeUnknownRelation, Message: "pattern references undeclared relation", Relation: relation}
	}
	if !rel.Inferred {
		return c.eng.store.FactsByPattern(ctx, relation, subject, object)
	}

	if c.complete[relation] {
		return filterDerived(c.full[relation], subject, object), nil
	}

	rules, _ := c.eng.closureRules(relation)
	if (subject == "" && object == "") || relationInBodies(relation, rules) {
		derived, closure, err := c.eng.deriveClosure(ctx, relation)
		if err != nil {
			return nil, err
		}
		for rel := range closure {
			c.full[rel] = derived[rel]
			c.complete[rel] = true
		}
		return filterDerived(c.full[relation], subject, object), nil
	}

	key := relation + "\x00" + subject + "\x00" + object
	if facts, hit := c.targeted[key]; hit {
		return facts, nil
	}
	facts, err := c.eng.deriveTargeted(ctx, relation, subject, object)
	if err != nil {
		return nil, err
	}
	c.targeted[key] = facts
	return facts, nil
}

// relationInBodies reports whether the relation appears in any rule body,
// which makes it (mutually) recursive within its closure.
func relationInBodies(relation string, rules []RegisteredRule) bool {
	for _, rr := range rules {
		for _, name := range rr.Rule.BodyRelations() {
			if name == relation {
				return true
			}
		}
	}
	return false
}
