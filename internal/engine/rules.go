package engine

import (
	"fmt"
	"sync"

	"github.com/syllog/syllog/internal/fact"
)

// RegisteredRule pairs a rule with its assigned identifier.
type RegisteredRule struct {
	ID   string
	Rule fact.Rule
}

// RuleSet is an explicit, concurrency-safe registry of inference rules.
// There is no process-global registry: callers construct a RuleSet, register
// rules against a schema, and hand it to the engine. Declaration order is
// preserved for deterministic evaluation.
type RuleSet struct {
	mu     sync.RWMutex
	schema *fact.Schema
	rules  []RegisteredRule
	names  NameSource
}

// NewRuleSet creates an empty rule set validated against the given schema.
func NewRuleSet(schema *fact.Schema, names NameSource) *RuleSet {
	if names == nil {
		names = UUIDSource{}
	}
	return &RuleSet{schema: schema, names: names}
}

// Register validates and adds a rule, returning its assigned identifier.
//
// Validation is eager and fails fast:
//   - every relation in head and body must be declared
//   - the head relation must be inferred-flavor
//   - the body must flatten to at least one non-empty alternative
//   - every head variable must appear in every body alternative
//   - no variable may span positions of different entity types
func (rs *RuleSet) Register(rule fact.Rule) (string, error) {
	if err := rs.validate(rule); err != nil {
		return "", err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	id := rs.names.Fresh("rule")
	rs.rules = append(rs.rules, RegisteredRule{ID: id, Rule: rule})
	return id, nil
}

// MustRegister is like Register but panics on validation failure.
// Use for statically known rule sets assembled at startup.
func (rs *RuleSet) MustRegister(rule fact.Rule) string {
	id, err := rs.Register(rule)
	if err != nil {
		panic(err)
	}
	return id
}

func (rs *RuleSet) validate(rule fact.Rule) error {
	headRel, ok := rs.schema.Relation(rule.Head.Relation)
	if !ok {
		return &EvalError{
			Code:     ErrCodeUnknownRelation,
			Message:  "rule head references undeclared relation",
			Relation: rule.Head.Relation,
		}
	}
	if !headRel.Inferred {
		return &EvalError{
			Code:     ErrCodeHeadNotInferred,
			Message:  "rule head must target an inferred relation",
			Relation: rule.Head.Relation,
		}
	}

	alts := rule.Alternatives()
	if len(alts) == 0 {
		return &EvalError{
			Code:     ErrCodeEmptyBody,
			Message:  "rule body has no alternatives",
			Relation: rule.Head.Relation,
		}
	}

	varTypes := make(map[string]string)
	if err := recordPatternVarTypes(rs.schema, rule.Head, varTypes); err != nil {
		return err
	}
	for _, alt := range alts {
		if len(alt) == 0 {
			return &EvalError{
				Code:     ErrCodeEmptyBody,
				Message:  "rule body alternative is empty",
				Relation: rule.Head.Relation,
			}
		}
		bound := make(map[string]bool)
		for _, p := range alt {
			if _, ok := rs.schema.Relation(p.Relation); !ok {
				return &EvalError{
					Code:     ErrCodeUnknownRelation,
					Message:  "rule body references undeclared relation",
					Relation: p.Relation,
				}
			}
			if err := recordPatternVarTypes(rs.schema, p, varTypes); err != nil {
				return err
			}
			for _, name := range p.VarNames() {
				bound[name] = true
			}
		}
		for _, name := range rule.Head.VarNames() {
			if !bound[name] {
				return &EvalError{
					Code:     ErrCodeHeadVarUnbound,
					Message:  "head variable is not bound by body alternative",
					Relation: rule.Head.Relation,
					Variable: name,
				}
			}
		}
	}
	return nil
}

// recordPatternVarTypes accumulates the entity type each variable must carry,
// rejecting a variable that spans two different types.
func recordPatternVarTypes(schema *fact.Schema, p fact.Pattern, varTypes map[string]string) error {
	positions := []struct {
		term fact.Term
		pos  string
	}{
		{p.Subject, "subject"},
		{p.Object, "object"},
	}
	for _, slot := range positions {
		v, ok := slot.term.(fact.Var)
		if !ok {
			continue
		}
		want, err := schema.TermType(p.Relation, slot.pos)
		if err != nil {
			return &EvalError{Code: ErrCodeUnknownRelation, Message: err.Error(), Relation: p.Relation}
		}
		if prev, seen := varTypes[v.Name]; seen && prev != want {
			return &EvalError{
				Code:     ErrCodeVarTypeMismatch,
				Message:  fmt.Sprintf("variable spans entity types %s and %s", prev, want),
				Relation: p.Relation,
				Variable: v.Name,
			}
		}
		varTypes[v.Name] = want
	}
	return nil
}

// Snapshot returns the registered rules in declaration order.
// The returned slice is a copy; mutating it does not affect the set.
func (rs *RuleSet) Snapshot() []RegisteredRule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]RegisteredRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of registered rules.
func (rs *RuleSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// Scope snapshots the current rules and returns a restore function.
// Rules registered after the snapshot are discarded on restore, so tests and
// exploratory sessions can layer temporary rules without leaking them:
//
//	restore := rules.Scope()
//	defer restore()
//	rules.MustRegister(temporary)
func (rs *RuleSet) Scope() func() {
	rs.mu.RLock()
	saved := make([]RegisteredRule, len(rs.rules))
	copy(saved, rs.rules)
	rs.mu.RUnlock()

	return func() {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		rs.rules = saved
	}
}
