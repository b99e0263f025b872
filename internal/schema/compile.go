// Package schema compiles CUE schema declarations into the engine's entity
// and relation registry.
//
// A schema file declares entity types and relations:
//
//	entity: Person: {
//		fields: {
//			name: string
//			age:  int
//		}
//	}
//
//	relation: ParentOf: {
//		subject: "Person"
//		object:  "Person"
//	}
//
//	relation: GrandparentOf: {
//		subject:  "Person"
//		object:   "Person"
//		inferred: true
//	}
//
// Compilation uses the CUE SDK's Go API directly (not a CLI subprocess).
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/syllog/syllog/internal/fact"
)

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses a built CUE value into a schema registry. Entities compile
// before relations so relation subject/object references always resolve.
func Compile(v cue.Value) (*fact.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := fact.NewSchema()

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if entitiesVal.Exists() {
		iter, err := entitiesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			et, err := CompileEntity(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := s.AddEntity(et); err != nil {
				return nil, &CompileError{Field: "entity." + et.Name, Message: err.Error(), Pos: iter.Value().Pos()}
			}
		}
	}

	relationsVal := v.LookupPath(cue.ParsePath("relation"))
	if relationsVal.Exists() {
		iter, err := relationsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rel, err := CompileRelation(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := s.AddRelation(rel); err != nil {
				return nil, &CompileError{Field: "relation." + rel.Name, Message: err.Error(), Pos: iter.Value().Pos()}
			}
		}
	}

	if len(s.Entities()) == 0 {
		return nil, &CompileError{Field: "entity", Message: "schema declares no entity types", Pos: v.Pos()}
	}
	return s, nil
}

// CompileEntity parses one entity declaration. Field types are CUE type
// expressions: string, int, or bool. Float and number types are rejected.
func CompileEntity(name string, v cue.Value) (fact.EntityType, error) {
	et := fact.EntityType{Name: name}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return et, nil // entity with only an implicit id
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return et, formatCUEError(err)
	}
	for iter.Next() {
		fieldName := iter.Label()
		kind, err := fieldKind(name, fieldName, iter.Value())
		if err != nil {
			return et, err
		}
		et.Fields = append(et.Fields, fact.Field{Name: fieldName, Kind: kind})
	}
	return et, nil
}

func fieldKind(entity, field string, v cue.Value) (fact.FieldKind, error) {
	label := fmt.Sprintf("entity.%s.fields.%s", entity, field)
	switch v.IncompleteKind() {
	case cue.StringKind:
		return fact.KindString, nil
	case cue.IntKind:
		return fact.KindInt, nil
	case cue.BoolKind:
		return fact.KindBool, nil
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   label,
			Message: "float and number types are forbidden; use int",
			Pos:     v.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   label,
			Message: fmt.Sprintf("unsupported field type %v; want string, int, or bool", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileRelation parses one relation declaration. subject and object are
// required entity type names; inferred defaults to false.
func CompileRelation(name string, v cue.Value) (fact.Relation, error) {
	rel := fact.Relation{Name: name}

	subject, err := requiredString(v, "relation."+name, "subject")
	if err != nil {
		return rel, err
	}
	rel.Subject = subject

	object, err := requiredString(v, "relation."+name, "object")
	if err != nil {
		return rel, err
	}
	rel.Object = object

	inferredVal := v.LookupPath(cue.ParsePath("inferred"))
	if inferredVal.Exists() {
		inferred, err := inferredVal.Bool()
		if err != nil {
			return rel, formatCUEError(err)
		}
		rel.Inferred = inferred
	}

	return rel, nil
}

func requiredString(v cue.Value, scope, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", &CompileError{
			Field:   scope + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	str, err := fieldVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return str, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
