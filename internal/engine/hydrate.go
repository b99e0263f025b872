package engine

import (
	"context"
	"fmt"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/store"
)

// ResultValue is one variable's resolved value in a solution. Entity is
// populated when the value is an entity reference and hydration found the
// row; it stays nil for scalar values and for references whose entity has
// been deleted since the facts were read.
type ResultValue struct {
	Value  fact.Value
	Entity *store.Entity
}

// Solution maps variable names to their resolved values for one query result.
type Solution map[string]ResultValue

// Ref returns the entity reference bound to a variable.
func (s Solution) Ref(name string) (fact.EntityRef, bool) {
	rv, ok := s[name]
	if !ok {
		return fact.EntityRef{}, false
	}
	ref, isRef := rv.Value.(fact.EntityRef)
	return ref, isRef
}

// hydrate resolves entity references in binding rows to stored entities.
// Keys are batched per entity type so hydration costs one query per type,
// not one per row.
func (e *Engine) hydrate(ctx context.Context, rows []fact.Bindings) ([]Solution, error) {
	keysByType := make(map[string]map[string]bool)
	for _, row := range rows {
		for _, val := range row {
			ref, ok := val.(fact.EntityRef)
			if !ok {
				continue
			}
			if keysByType[ref.Type] == nil {
				keysByType[ref.Type] = make(map[string]bool)
			}
			keysByType[ref.Type][ref.Key] = true
		}
	}

	entities := make(map[fact.EntityRef]*store.Entity)
	for entityType, keySet := range keysByType {
		keys := make([]string, 0, len(keySet))
		for key := range keySet {
			keys = append(keys, key)
		}
		fetched, err := e.store.EntitiesByKeys(ctx, entityType, keys)
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", entityType, err)
		}
		for key, ent := range fetched {
			entities[fact.EntityRef{Type: entityType, Key: key}] = ent
		}
	}

	out := make([]Solution, 0, len(rows))
	for _, row := range rows {
		sol := make(Solution, len(row))
		for name, val := range row {
			rv := ResultValue{Value: val}
			if ref, ok := val.(fact.EntityRef); ok {
				rv.Entity = entities[ref]
			}
			sol[name] = rv
		}
		out = append(out, sol)
	}
	return out, nil
}

// bare wraps binding rows as solutions without touching the store.
func bare(rows []fact.Bindings) []Solution {
	out := make([]Solution, 0, len(rows))
	for _, row := range rows {
		sol := make(Solution, len(row))
		for name, val := range row {
			sol[name] = ResultValue{Value: val}
		}
		out = append(out, sol)
	}
	return out
}
