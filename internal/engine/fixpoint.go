package engine

import (
	"context"
	"sort"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/store"
)

// DefaultFixpointCap is the default maximum number of forward-chaining
// rounds per derivation. Hitting the cap is not an error: the engine logs a
// warning and answers from the facts derived so far.
const DefaultFixpointCap = 100

// storeChecker evaluates constraint predicates against stored entities.
type storeChecker struct {
	st *store.Store
}

func (c storeChecker) check(ctx context.Context, ref fact.EntityRef, pred fact.Predicate) (bool, error) {
	return c.st.EvaluatePredicate(ctx, ref.Type, ref.Key, pred)
}

func (c storeChecker) filter(ctx context.Context, entityType string, keys []string, pred fact.Predicate) ([]string, error) {
	return c.st.FilterKeys(ctx, entityType, keys, pred)
}

// fixpointCorpus answers candidate lookups during forward chaining: storable
// relations come from the store, inferred relations from the derivation in
// progress.
type fixpointCorpus struct {
	st      *store.Store
	schema  *fact.Schema
	derived map[string]map[fact.Fact]bool
}

func (c *fixpointCorpus) candidates(ctx context.Context, relation, subject, object string) ([]fact.Fact, error) {
	rel, ok := c.schema.Relation(relation)
	if !ok {
		return nil, &EvalError{Code: ErrCodeUnknownRelation, Message: "pattern references undeclared relation", Relation: relation}
	}
	if !rel.Inferred {
		return c.st.FactsByPattern(ctx, relation, subject, object)
	}
	return filterDerived(c.derived[relation], subject, object), nil
}

// filterDerived selects matching facts from a derived set and orders them by
// (subject, object), mirroring the store's enumeration order.
func filterDerived(set map[fact.Fact]bool, subject, object string) []fact.Fact {
	var out []fact.Fact
	for f := range set {
		if subject != "" && f.Subject != subject {
			continue
		}
		if object != "" && f.Object != object {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Object < out[j].Object
	})
	return out
}

// closureRules returns the rules relevant to deriving a relation: every rule
// whose head relation is reachable from the requested relation through rule
// bodies. The closure set contains the inferred relations involved.
func (e *Engine) closureRules(relation string) ([]RegisteredRule, map[string]bool) {
	all := e.rules.Snapshot()
	closure := map[string]bool{relation: true}

	for {
		grew := false
		for _, rr := range all {
			if !closure[rr.Rule.Head.Relation] {
				continue
			}
			for _, name := range rr.Rule.BodyRelations() {
				rel, ok := e.schema.Relation(name)
				if !ok || !rel.Inferred || closure[name] {
					continue
				}
				closure[name] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	var rules []RegisteredRule
	for _, rr := range all {
		if closure[rr.Rule.Head.Relation] {
			rules = append(rules, rr)
		}
	}
	return rules, closure
}

// fixpoint runs forward chaining over the given rules until no round derives
// a new fact or the round cap is reached. Delta tracking is per relation:
// after the first round a rule re-fires only if some relation in its body
// gained facts in the previous round.
func (e *Engine) fixpoint(ctx context.Context, rules []RegisteredRule, closure map[string]bool) (map[string]map[fact.Fact]bool, error) {
	derived := make(map[string]map[fact.Fact]bool, len(closure))
	for rel := range closure {
		derived[rel] = make(map[fact.Fact]bool)
	}

	solv := &solver{
		schema: e.schema,
		corpus: &fixpointCorpus{st: e.store, schema: e.schema, derived: derived},
		check:  storeChecker{st: e.store},
		log:    e.log,
	}

	var changed map[string]bool
	converged := len(rules) == 0
	for round := 0; round < e.fixpointCap; round++ {
		delta := make(map[string]bool)
		for _, rr := range rules {
			if changed != nil && !ruleDependsOn(rr.Rule, changed) {
				continue
			}
			for _, alt := range rr.Rule.Alternatives() {
				err := solv.solve(ctx, alt, nil, func(b fact.Bindings) error {
					head, err := projectHead(rr.Rule.Head, b)
					if err != nil {
						return err
					}
					if !derived[head.Relation][head] {
						derived[head.Relation][head] = true
						delta[head.Relation] = true
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			}
		}
		if len(delta) == 0 {
			converged = true
			break
		}
		changed = delta
	}

	if !converged {
		e.capHits.Add(1)
		e.log.Warn("forward chaining stopped at round cap before convergence",
			"cap", e.fixpointCap, "relations", len(closure))
	}
	return derived, nil
}

// ruleDependsOn reports whether any relation in the rule's body gained facts
// in the previous round.
func ruleDependsOn(r fact.Rule, changed map[string]bool) bool {
	for _, name := range r.BodyRelations() {
		if changed[name] {
			return true
		}
	}
	return false
}

// projectHead instantiates a rule head under a body solution's bindings.
func projectHead(head fact.Pattern, b fact.Bindings) (fact.Fact, error) {
	subject, err := headKey(head, head.Subject, b)
	if err != nil {
		return fact.Fact{}, err
	}
	object, err := headKey(head, head.Object, b)
	if err != nil {
		return fact.Fact{}, err
	}
	return fact.F(head.Relation, subject, object), nil
}

func headKey(head fact.Pattern, t fact.Term, b fact.Bindings) (string, error) {
	switch term := t.(type) {
	case fact.Const:
		return term.Ref.Key, nil
	case fact.Var:
		val, ok := b[term.Name]
		if !ok {
			return "", &EvalError{
				Code:     ErrCodeHeadVarUnbound,
				Message:  "head variable unbound after body evaluation",
				Relation: head.Relation,
				Variable: term.Name,
			}
		}
		ref, isRef := val.(fact.EntityRef)
		if !isRef {
			return "", &EvalError{
				Code:     ErrCodeHeadVarUnbound,
				Message:  "head variable bound to a non-entity value",
				Relation: head.Relation,
				Variable: term.Name,
			}
		}
		return ref.Key, nil
	default:
		return "", &EvalError{Code: ErrCodeHeadVarUnbound, Message: "unsupported head term", Relation: head.Relation}
	}
}

// deriveClosure fully derives every relation in the requested relation's
// closure.
func (e *Engine) deriveClosure(ctx context.Context, relation string) (map[string]map[fact.Fact]bool, map[string]bool, error) {
	rules, closure := e.closureRules(relation)
	derived, err := e.fixpoint(ctx, rules, closure)
	if err != nil {
		return nil, nil, err
	}
	return derived, closure, nil
}

// deriveTargeted derives only the facts of one relation consistent with the
// given subject/object keys. Valid only when the relation is non-recursive
// (appears in no closure rule body): the supporting relations are derived in
// full, then the relation's own rules run once, seeded from the keys.
func (e *Engine) deriveTargeted(ctx context.Context, relation, subject, object string) ([]fact.Fact, error) {
	rules, closure := e.closureRules(relation)

	var target, support []RegisteredRule
	for _, rr := range rules {
		if rr.Rule.Head.Relation == relation {
			target = append(target, rr)
		} else {
			support = append(support, rr)
		}
	}

	derived, err := e.fixpoint(ctx, support, closure)
	if err != nil {
		return nil, err
	}

	solv := &solver{
		schema: e.schema,
		corpus: &fixpointCorpus{st: e.store, schema: e.schema, derived: derived},
		check:  storeChecker{st: e.store},
		log:    e.log,
	}

	out := make(map[fact.Fact]bool)
	for _, rr := range target {
		seed, ok := headSeed(e.schema, rr.Rule.Head, subject, object)
		if !ok {
			continue
		}
		for _, alt := range rr.Rule.Alternatives() {
			err := solv.solve(ctx, alt, seed, func(b fact.Bindings) error {
				head, err := projectHead(rr.Rule.Head, b)
				if err != nil {
					return err
				}
				out[head] = true
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return filterDerived(out, subject, object), nil
}

// headSeed builds seed bindings restricting a rule's head variables to the
// requested keys. ok is false when a head constant contradicts a key or one
// variable would need two different keys, meaning the rule cannot contribute.
func headSeed(schema *fact.Schema, head fact.Pattern, subject, object string) (fact.Bindings, bool) {
	seed := fact.Bindings{}
	slots := []struct {
		term fact.Term
		key  string
		pos  string
	}{
		{head.Subject, subject, "subject"},
		{head.Object, object, "object"},
	}
	for _, slot := range slots {
		if slot.key == "" {
			continue
		}
		switch term := slot.term.(type) {
		case fact.Const:
			if term.Ref.Key != slot.key {
				return nil, false
			}
		case fact.Var:
			entityType, err := schema.TermType(head.Relation, slot.pos)
			if err != nil {
				return nil, false
			}
			ref := fact.EntityRef{Type: entityType, Key: slot.key}
			if prev, bound := seed[term.Name]; bound {
				if !fact.ValueEqual(prev, ref) {
					return nil, false
				}
				continue
			}
			seed[term.Name] = ref
		}
	}
	return seed, true
}
