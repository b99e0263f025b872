package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/store"
)

// Engine evaluates queries and inference rules over one store and schema.
//
// Thread-safety model:
//   - Query, QueryKeys, Infer: safe from any goroutine; each invocation
//     builds its own derivation state
//   - the RuleSet is independently concurrency-safe; rules registered
//     mid-query affect the next query, not the running one
type Engine struct {
	store  *store.Store
	schema *fact.Schema
	rules  *RuleSet
	names  NameSource
	log    *slog.Logger

	fixpointCap int
	capHits     atomic.Int64
}

// Option configures engine parameters.
type Option func(*Engine)

// WithFixpointCap sets the maximum forward-chaining rounds per derivation.
//
// Default: 100 rounds (DefaultFixpointCap).
// Use a small cap in tests that exercise non-convergence handling.
func WithFixpointCap(cap int) Option {
	return func(e *Engine) {
		e.fixpointCap = cap
	}
}

// WithNameSource sets the identifier generator for query correlation.
func WithNameSource(names NameSource) Option {
	return func(e *Engine) {
		e.names = names
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine over the given store, schema, and rule set.
// A nil rule set means no inference: inferred relations derive nothing.
func New(st *store.Store, schema *fact.Schema, rules *RuleSet, opts ...Option) *Engine {
	if rules == nil {
		rules = NewRuleSet(schema, nil)
	}
	e := &Engine{
		store:       st,
		schema:      schema,
		rules:       rules,
		names:       UUIDSource{},
		log:         slog.Default(),
		fixpointCap: DefaultFixpointCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// FixpointCapHits returns how many derivations stopped at the round cap
// without converging since the engine was created.
func (e *Engine) FixpointCapHits() int64 {
	return e.capHits.Load()
}

// QueryKeys evaluates a conjunctive query and returns the satisfying binding
// sets, deduplicated and in stable order. Variables bind entity references
// only; use Query to resolve them to stored entities.
//
// A fully ground query (no variables) acts as an existence check: it yields
// one empty binding set when the facts hold and none otherwise.
func (e *Engine) QueryKeys(ctx context.Context, patterns ...fact.Pattern) ([]fact.Bindings, error) {
	if err := e.validateQuery(patterns); err != nil {
		return nil, err
	}

	queryID := e.names.Fresh("query")
	start := time.Now()

	solv := &solver{
		schema: e.schema,
		corpus: newQueryCorpus(e),
		check:  storeChecker{st: e.store},
		log:    e.log,
	}

	var rows []fact.Bindings
	seen := make(map[string]bool)
	err := solv.solve(ctx, patterns, nil, func(b fact.Bindings) error {
		hash, err := fact.BindingsHash(b)
		if err != nil {
			return err
		}
		if seen[hash] {
			return nil
		}
		seen[hash] = true
		rows = append(rows, b.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("query evaluated",
		"query_id", queryID,
		"patterns", len(patterns),
		"solutions", len(rows),
		"duration", time.Since(start))
	return rows, nil
}

// Query evaluates a conjunctive query and hydrates every bound entity
// reference in one batched fetch per entity type.
func (e *Engine) Query(ctx context.Context, patterns ...fact.Pattern) ([]Solution, error) {
	rows, err := e.QueryKeys(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	return e.hydrate(ctx, rows)
}

// QueryBare is Query without hydration: solutions carry references only.
func (e *Engine) QueryBare(ctx context.Context, patterns ...fact.Pattern) ([]Solution, error) {
	rows, err := e.QueryKeys(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	return bare(rows), nil
}

// Infer derives every fact of an inferred relation, ordered by
// (subject, object). Derived facts are returned, never persisted.
func (e *Engine) Infer(ctx context.Context, relation string) ([]fact.Fact, error) {
	rel, ok := e.schema.Relation(relation)
	if !ok {
		return nil, &EvalError{Code: ErrCodeUnknownRelation, Message: "undeclared relation", Relation: relation}
	}
	if !rel.Inferred {
		return e.store.FactsByPattern(ctx, relation, "", "")
	}

	derived, _, err := e.deriveClosure(ctx, relation)
	if err != nil {
		return nil, err
	}
	return filterDerived(derived[relation], "", ""), nil
}

// validateQuery rejects malformed queries before any store access: unknown
// relations, constants of the wrong entity type, and variables spanning two
// entity types across patterns.
func (e *Engine) validateQuery(patterns []fact.Pattern) error {
	if len(patterns) == 0 {
		return &EvalError{Code: ErrCodeEmptyBody, Message: "query has no patterns"}
	}
	varTypes := make(map[string]string)
	for _, p := range patterns {
		if _, ok := e.schema.Relation(p.Relation); !ok {
			return &EvalError{Code: ErrCodeUnknownRelation, Message: "query references undeclared relation", Relation: p.Relation}
		}
		if err := checkConstTypes(e.schema, p); err != nil {
			return err
		}
		if err := recordPatternVarTypes(e.schema, p, varTypes); err != nil {
			return err
		}
	}
	return nil
}

func checkConstTypes(schema *fact.Schema, p fact.Pattern) error {
	slots := []struct {
		term fact.Term
		pos  string
	}{
		{p.Subject, "subject"},
		{p.Object, "object"},
	}
	for _, slot := range slots {
		c, ok := slot.term.(fact.Const)
		if !ok {
			continue
		}
		want, err := schema.TermType(p.Relation, slot.pos)
		if err != nil {
			return &EvalError{Code: ErrCodeUnknownRelation, Message: err.Error(), Relation: p.Relation}
		}
		if c.Ref.Type != want {
			return &EvalError{
				Code:     ErrCodeVarTypeMismatch,
				Message:  "constant entity type does not match the relation position",
				Relation: p.Relation,
			}
		}
	}
	return nil
}
