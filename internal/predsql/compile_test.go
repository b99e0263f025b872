package predsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
)

func TestCompileNilIsVacuouslyTrue(t *testing.T) {
	sql, params, err := Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompileCmp(t *testing.T) {
	sql, params, err := Compile(fact.Where("age", fact.OpGe, fact.Int(18)))
	require.NoError(t, err)
	assert.Equal(t, "age >= ?", sql)
	assert.Equal(t, []any{int64(18)}, params)
}

func TestCompileEntityRefComparesByKey(t *testing.T) {
	sql, params, err := Compile(fact.Where("owner", fact.OpEq, fact.EntityRef{Type: "Company", Key: "acme"}))
	require.NoError(t, err)
	assert.Equal(t, "owner = ?", sql)
	assert.Equal(t, []any{"acme"}, params)
}

func TestCompileBoolMapsToInt(t *testing.T) {
	_, params, err := Compile(fact.Where("active", fact.OpEq, fact.Bool(true)))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, params)

	_, params, err = Compile(fact.Where("active", fact.OpEq, fact.Bool(false)))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, params)
}

func TestCompileJunctions(t *testing.T) {
	p := fact.AndP(
		fact.Where("age", fact.OpGe, fact.Int(18)),
		fact.OrP(
			fact.Where("name", fact.OpEq, fact.String("bob")),
			fact.Where("name", fact.OpEq, fact.String("alice")),
		),
	)
	sql, params, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t, "(age >= ? AND (name = ? OR name = ?))", sql)
	assert.Equal(t, []any{int64(18), "bob", "alice"}, params)
}

func TestCompileNot(t *testing.T) {
	sql, params, err := Compile(fact.NotP(fact.Where("age", fact.OpLt, fact.Int(10))))
	require.NoError(t, err)
	assert.Equal(t, "NOT (age < ?)", sql)
	assert.Equal(t, []any{int64(10)}, params)
}

func TestCompileEmptyConjunctionVacuouslyTrue(t *testing.T) {
	sql, _, err := Compile(fact.And{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
}

func TestCompileEmptyDisjunctionUnsatisfiable(t *testing.T) {
	sql, _, err := Compile(fact.Or{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)
}

func TestCompileRejectsInvalidField(t *testing.T) {
	_, _, err := Compile(fact.Where("age; DROP TABLE", fact.OpEq, fact.Int(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field name")
}

func TestCompileRejectsInvalidOp(t *testing.T) {
	_, _, err := Compile(fact.Cmp{Field: "age", Op: fact.Op("LIKE"), Value: fact.Int(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestCompileCrossVariableFails(t *testing.T) {
	_, _, err := Compile(fact.Distinct("other"))
	var cross *ErrCrossVariable
	require.ErrorAs(t, err, &cross)
	assert.Equal(t, "other", cross.Name)
}
