package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syllog/syllog/internal/fact"
)

// corpus supplies candidate facts for one relation. Empty subject/object
// means that position is unconstrained. Implementations must enumerate in a
// stable order.
type corpus interface {
	candidates(ctx context.Context, relation, subject, object string) ([]fact.Fact, error)
}

// checker evaluates a self-contained constraint predicate against one entity.
type checker interface {
	check(ctx context.Context, ref fact.EntityRef, pred fact.Predicate) (bool, error)
}

// batchChecker is an optional checker upgrade: filter many candidate keys
// against one predicate in a single store round trip.
type batchChecker interface {
	filter(ctx context.Context, entityType string, keys []string, pred fact.Predicate) ([]string, error)
}

// solver runs one conjunction of patterns against a corpus, propagating
// bindings left to right with backtracking.
//
// Error severity is two-tiered: a corpus fetch failure aborts the whole
// query, while a store failure evaluating one candidate's constraint only
// drops that candidate, with a warning so the skip stays observable.
type solver struct {
	schema *fact.Schema
	corpus corpus
	check  checker
	log    *slog.Logger
}

// solve enumerates every binding set that satisfies all patterns, extending
// seed, and calls yield for each. Variable constraints are evaluated as soon
// as their referenced variables are bound; cross-variable constraints that
// outlive every pattern are validated before yield.
func (s *solver) solve(ctx context.Context, patterns []fact.Pattern, seed fact.Bindings, yield func(fact.Bindings) error) error {
	if seed == nil {
		seed = fact.Bindings{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	ordered := planOrder(propagate(patterns), seed)
	return s.descend(ctx, ordered, 0, seed, nil, yield)
}

func (s *solver) descend(ctx context.Context, patterns []fact.Pattern, i int, bound fact.Bindings, deferred []pendingCheck, yield func(fact.Bindings) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if i == len(patterns) {
		// Deferred checks with still-unbound references mean no pattern
		// ever bound the referenced variable. That is a query construction
		// error, not a pruning condition.
		for _, check := range deferred {
			if !check.refsBound(bound) {
				return fmt.Errorf("constraint on %s references a variable no pattern binds: %v",
					fact.FormatValue(check.Ref), fact.Refs(check.Pred))
			}
			holds, err := s.evaluate(ctx, check, bound)
			if err != nil {
				return err
			}
			if !holds {
				return nil
			}
		}
		return yield(bound)
	}

	p := patterns[i]
	subject, object := groundKeys(p, bound)
	candidates, err := s.corpus.candidates(ctx, p.Relation, subject, object)
	if err != nil {
		return err
	}
	candidates, p = s.prefilter(ctx, p, candidates)

	for _, candidate := range candidates {
		delta, checks, ok := unify(s.schema, p, candidate)
		if !ok {
			continue
		}
		merged, err := fact.Merge(bound, delta)
		if err != nil {
			// Same variable, different entity across patterns: prune.
			continue
		}

		// Run every check whose references are now bound; carry the rest.
		combined := make([]pendingCheck, 0, len(deferred)+len(checks))
		combined = append(combined, deferred...)
		combined = append(combined, checks...)

		var carried []pendingCheck
		pruned := false
		for _, check := range combined {
			if !check.refsBound(merged) {
				carried = append(carried, check)
				continue
			}
			holds, err := s.evaluate(ctx, check, merged)
			if err != nil {
				return err
			}
			if !holds {
				pruned = true
				break
			}
		}
		if pruned {
			continue
		}

		if err := s.descend(ctx, patterns, i+1, merged, carried, yield); err != nil {
			return err
		}
	}
	return nil
}

// prefilter batches a pattern position's self-contained constraint into one
// store query over all candidate keys, then strips it from the pattern so
// the per-candidate path does not re-evaluate it. Filter failures fall back
// to per-candidate checks.
func (s *solver) prefilter(ctx context.Context, p fact.Pattern, candidates []fact.Fact) ([]fact.Fact, fact.Pattern) {
	bc, ok := s.check.(batchChecker)
	if !ok || len(candidates) == 0 {
		return candidates, p
	}

	for _, pos := range []string{"subject", "object"} {
		term := p.Subject
		if pos == "object" {
			term = p.Object
		}
		v, isVar := term.(fact.Var)
		if !isVar || v.Where == nil || !fact.SelfContained(v.Where) {
			continue
		}
		entityType, err := s.schema.TermType(p.Relation, pos)
		if err != nil {
			continue
		}

		seen := make(map[string]bool, len(candidates))
		keys := make([]string, 0, len(candidates))
		for _, f := range candidates {
			key := f.Subject
			if pos == "object" {
				key = f.Object
			}
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}

		allowed, err := bc.filter(ctx, entityType, keys, v.Where)
		if err != nil {
			s.log.Warn("batch constraint filter failed, falling back to per-candidate checks",
				"relation", p.Relation, "variable", v.Name, "error", err)
			continue
		}
		allowedSet := make(map[string]bool, len(allowed))
		for _, key := range allowed {
			allowedSet[key] = true
		}

		// The corpus may hand out memoized slices; never filter in place.
		kept := make([]fact.Fact, 0, len(candidates))
		for _, f := range candidates {
			key := f.Subject
			if pos == "object" {
				key = f.Object
			}
			if allowedSet[key] {
				kept = append(kept, f)
			}
		}
		candidates = kept

		stripped := fact.Var{Name: v.Name}
		if pos == "subject" {
			p.Subject = stripped
		} else {
			p.Object = stripped
		}
	}
	return candidates, p
}

// evaluate substitutes bound variables into a check's predicate and asks the
// store whether the entity satisfies it. A store failure drops the candidate
// rather than failing the query; only substitution errors (a reference to an
// unbound variable) propagate.
func (s *solver) evaluate(ctx context.Context, check pendingCheck, bound fact.Bindings) (bool, error) {
	pred, err := fact.Substitute(check.Pred, bound)
	if err != nil {
		return false, err
	}
	holds, err := s.check.check(ctx, check.Ref, pred)
	if err != nil {
		s.log.Warn("constraint check failed against the store, candidate dropped",
			"entity", fact.FormatValue(check.Ref), "error", err)
		return false, nil
	}
	return holds, nil
}
