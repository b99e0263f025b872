package store

import "fmt"

// ErrInferredFact is returned when a caller attempts to persist a fact of an
// inferred-flavor relation. Inferred facts exist only as rule-evaluation
// output; the rejection is immediate, never deferred to flush time.
type ErrInferredFact struct {
	Relation string
}

func (e *ErrInferredFact) Error() string {
	return fmt.Sprintf("relation %q is inferred: inferred facts cannot be stored", e.Relation)
}
