package engine

import (
	"errors"
	"fmt"
)

// EvalError represents an error detected during rule registration or query
// evaluation.
//
// Evaluation errors include:
//   - Unknown relation: a pattern names a relation the schema never declared
//   - Variable type mismatch: one variable spans positions of different entity types
//   - Head not inferred: a rule head targets a storable relation
//   - Empty body: a rule body flattens to no alternatives
//   - Unbound head variable: a head variable missing from a body alternative
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Relation identifies the affected relation, when known.
	Relation string

	// Variable identifies the affected variable, when known.
	Variable string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnknownRelation indicates a pattern references an undeclared relation.
	ErrCodeUnknownRelation EvalErrorCode = "UNKNOWN_RELATION"

	// ErrCodeVarTypeMismatch indicates one variable name spans two entity types.
	ErrCodeVarTypeMismatch EvalErrorCode = "VAR_TYPE_MISMATCH"

	// ErrCodeHeadNotInferred indicates a rule head targets a storable relation.
	ErrCodeHeadNotInferred EvalErrorCode = "RULE_HEAD_NOT_INFERRED"

	// ErrCodeEmptyBody indicates a rule body has no alternatives.
	ErrCodeEmptyBody EvalErrorCode = "RULE_EMPTY_BODY"

	// ErrCodeHeadVarUnbound indicates a head variable absent from a body alternative.
	ErrCodeHeadVarUnbound EvalErrorCode = "RULE_HEAD_VAR_UNBOUND"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	switch {
	case e.Relation != "" && e.Variable != "":
		return fmt.Sprintf("%s: %s (relation=%s, variable=%s)", e.Code, e.Message, e.Relation, e.Variable)
	case e.Relation != "":
		return fmt.Sprintf("%s: %s (relation=%s)", e.Code, e.Message, e.Relation)
	case e.Variable != "":
		return fmt.Sprintf("%s: %s (variable=%s)", e.Code, e.Message, e.Variable)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsEvalCode reports whether err is an EvalError with the given code.
// Uses errors.As to handle wrapped errors.
func IsEvalCode(err error, code EvalErrorCode) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
