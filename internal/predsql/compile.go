// Package predsql compiles constraint predicates to parameterized SQL
// WHERE fragments for SQLite.
//
// Values are ALWAYS parameterized, never interpolated. Field names are the
// only identifiers spliced into SQL text and are validated against a strict
// identifier pattern before use.
package predsql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syllog/syllog/internal/fact"
)

// ErrCrossVariable is returned when a predicate still contains a VarRef.
// Cross-variable predicates must be substituted (fact.Substitute) with
// resolved bindings before compilation.
type ErrCrossVariable struct {
	Name string
}

func (e *ErrCrossVariable) Error() string {
	return fmt.Sprintf("predicate references unresolved variable %q", e.Name)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Compile converts a predicate to a SQL WHERE fragment and its parameters.
// A nil predicate compiles to "1 = 1" (always true).
func Compile(p fact.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case fact.Cmp:
		return compileCmp(pred)
	case fact.And:
		// A conjunction of nothing is vacuously true.
		return compileJunction(pred.Preds, " AND ", "1 = 1")
	case fact.Or:
		// A disjunction needs at least one child to hold, so an empty
		// disjunction is unsatisfiable.
		return compileJunction(pred.Preds, " OR ", "1 = 0")
	case fact.Not:
		inner, params, err := Compile(pred.Pred)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileCmp(cmp fact.Cmp) (string, []any, error) {
	if !identPattern.MatchString(cmp.Field) {
		return "", nil, fmt.Errorf("invalid field name %q", cmp.Field)
	}
	if !fact.ValidOp(cmp.Op) {
		return "", nil, fmt.Errorf("invalid operator %q", cmp.Op)
	}

	param, err := operandToParam(cmp.Value)
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("%s %s ?", cmp.Field, cmp.Op), []any{param}, nil
}

func compileJunction(preds []fact.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	parts := make([]string, 0, len(preds))
	var allParams []any
	for _, child := range preds {
		sql, params, err := Compile(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		allParams = append(allParams, params...)
	}
	return "(" + strings.Join(parts, sep) + ")", allParams, nil
}

// operandToParam converts a predicate operand to a SQL parameter value.
// Entity references compare by key; booleans map to SQLite 0/1.
func operandToParam(op fact.Operand) (any, error) {
	switch val := op.(type) {
	case fact.EntityRef:
		return val.Key, nil
	case fact.String:
		return string(val), nil
	case fact.Int:
		return int64(val), nil
	case fact.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case fact.VarRef:
		return nil, &ErrCrossVariable{Name: val.Name}
	default:
		return nil, fmt.Errorf("unsupported operand type for SQL parameter: %T", op)
	}
}
