// Package fact provides the foundational types for syllog: values, terms,
// patterns, predicates, facts, relations, and rules.
//
// This package contains type definitions and pure functions only. All other
// internal packages import fact; fact imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - scalar values are string, int64, or bool
//   - Sealed interfaces (Value, Operand, Term, Predicate, Body) - exhaustive
//     type switches are safe, external implementations are impossible
//   - Relation flavor (storable vs inferred) is declared statically on the
//     descriptor, never discovered at runtime
package fact
