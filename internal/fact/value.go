package fact

import "fmt"

// Value is a sealed interface for resolved values: an entity reference or a
// scalar. Only EntityRef, String, Int, and Bool implement it.
// NO floats - floats break deterministic hashing and comparison.
type Value interface {
	value() // Sealed - only these types implement it
	Operand
}

// EntityRef identifies a stored entity by type and primary key.
// It is the resolved form of a bound variable: the engine only ever holds
// keys, never entity objects (hydration resolves keys at the edge).
type EntityRef struct {
	Type string // entity type name, e.g. "Person"
	Key  string // primary key within that type
}

func (EntityRef) value() {}

// String is a scalar string value.
type String string

func (String) value() {}

// Int is a scalar integer value. Always int64, never a float.
type Int int64

func (Int) value() {}

// Bool is a scalar boolean value.
type Bool bool

func (Bool) value() {}

// Operand is a sealed interface for anything that may appear on the
// right-hand side of a predicate comparison: a Value or a VarRef.
// VarRef is an Operand but not a Value - an unresolved variable reference
// is never a legal binding result.
type Operand interface {
	operand()
}

func (EntityRef) operand() {}
func (String) operand()    {}
func (Int) operand()       {}
func (Bool) operand()      {}

// VarRef references another query variable from inside a predicate.
// A predicate containing a VarRef is cross-variable: it cannot be evaluated
// until the referenced variable is bound, so the solver defers it to
// post-conjunction validation.
type VarRef struct {
	Name string
}

func (VarRef) operand() {}

// ValueEqual reports whether two values are equal. Values of different
// dynamic types are never equal.
func ValueEqual(a, b Value) bool {
	return a == b
}

// FormatValue renders a value for logs and text output.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case EntityRef:
		return fmt.Sprintf("%s:%s", val.Type, val.Key)
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
