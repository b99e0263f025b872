// Package engine evaluates queries and inference rules over the entity
// store: pattern unification, constraint propagation, conjunctive solving
// with backtracking, and forward chaining of inferred relations to fixpoint.
//
// The engine holds no mutable state between queries beyond its registered
// rule set. Derived facts are computed per query and never persisted; the
// store remains the single source of truth for storable facts.
package engine
