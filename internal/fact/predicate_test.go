package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndPDropsNilAndUnwrapsSingle(t *testing.T) {
	inner := Where("age", OpGe, Int(18))

	assert.Equal(t, Predicate(inner), AndP(nil, inner, nil))

	combined := AndP(inner, Where("name", OpEq, String("bob")))
	and, ok := combined.(And)
	require.True(t, ok)
	assert.Len(t, and.Preds, 2)
}

func TestOrPDropsNilAndUnwrapsSingle(t *testing.T) {
	inner := Where("age", OpLt, Int(10))
	assert.Equal(t, Predicate(inner), OrP(inner, nil))
}

func TestRefsSortedAndDistinct(t *testing.T) {
	p := AndP(
		Where("owner", OpEq, VarRef{Name: "zed"}),
		OrP(
			Where("id", OpNe, VarRef{Name: "alpha"}),
			Where("age", OpGe, Int(18)),
		),
		NotP(Where("owner", OpEq, VarRef{Name: "zed"})),
	)
	assert.Equal(t, []string{"alpha", "zed"}, Refs(p))
}

func TestSelfContained(t *testing.T) {
	assert.True(t, SelfContained(nil))
	assert.True(t, SelfContained(Where("age", OpGe, Int(18))))
	assert.False(t, SelfContained(Where("owner", OpEq, VarRef{Name: "c"})))
	assert.False(t, SelfContained(Distinct("other")))
}

func TestDistinctShape(t *testing.T) {
	p := Distinct("person")
	cmp, ok := p.(Cmp)
	require.True(t, ok)
	assert.Equal(t, "id", cmp.Field)
	assert.Equal(t, OpNe, cmp.Op)
	assert.Equal(t, Operand(VarRef{Name: "person"}), cmp.Value)
}

func TestSubstituteBoundEntityComparesByKey(t *testing.T) {
	b := Bindings{"company": EntityRef{Type: "Company", Key: "acme"}}

	sub, err := Substitute(Where("owner", OpEq, VarRef{Name: "company"}), b)
	require.NoError(t, err)
	assert.Equal(t, Predicate(Cmp{Field: "owner", Op: OpEq, Value: String("acme")}), sub)
}

func TestSubstituteScalarAndNested(t *testing.T) {
	b := Bindings{"limit": Int(21)}

	sub, err := Substitute(AndP(
		Where("age", OpGe, VarRef{Name: "limit"}),
		Where("name", OpNe, String("bob")),
	), b)
	require.NoError(t, err)

	and, ok := sub.(And)
	require.True(t, ok)
	assert.Equal(t, Predicate(Cmp{Field: "age", Op: OpGe, Value: Int(21)}), and.Preds[0])
	assert.Equal(t, Predicate(Cmp{Field: "name", Op: OpNe, Value: String("bob")}), and.Preds[1])
}

func TestSubstituteUnboundFails(t *testing.T) {
	_, err := Substitute(Where("owner", OpEq, VarRef{Name: "missing"}), Bindings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestValidOp(t *testing.T) {
	for _, op := range []Op{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe} {
		assert.True(t, ValidOp(op))
	}
	assert.False(t, ValidOp(Op("LIKE")))
	assert.False(t, ValidOp(Op("")))
}
