package schema

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
)

func compileString(t *testing.T, src string) (*fact.Schema, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return Compile(v)
}

const familyCUE = `
entity: Person: {
	fields: {
		name:   string
		age:    int
		active: bool
	}
}

relation: ParentOf: {
	subject: "Person"
	object:  "Person"
}

relation: GrandparentOf: {
	subject:  "Person"
	object:   "Person"
	inferred: true
}
`

func TestCompileFamilySchema(t *testing.T) {
	s, err := compileString(t, familyCUE)
	require.NoError(t, err)

	ents := s.Entities()
	require.Len(t, ents, 1)
	assert.Equal(t, "Person", ents[0].Name)
	assert.Equal(t, []fact.Field{
		{Name: "name", Kind: fact.KindString},
		{Name: "age", Kind: fact.KindInt},
		{Name: "active", Kind: fact.KindBool},
	}, ents[0].Fields)

	parent, ok := s.Relation("ParentOf")
	require.True(t, ok)
	assert.False(t, parent.Inferred)

	grandparent, ok := s.Relation("GrandparentOf")
	require.True(t, ok)
	assert.True(t, grandparent.Inferred)
}

func TestCompileEntityWithoutFields(t *testing.T) {
	s, err := compileString(t, `entity: Tag: {}`)
	require.NoError(t, err)
	require.Len(t, s.Entities(), 1)
	assert.Empty(t, s.Entities()[0].Fields)
}

func TestCompileRejectsFloatFields(t *testing.T) {
	_, err := compileString(t, `
entity: Reading: {
	fields: value: float
}
`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "float and number types are forbidden")
	assert.Equal(t, "entity.Reading.fields.value", ce.Field)
}

func TestCompileRejectsNumberFields(t *testing.T) {
	_, err := compileString(t, `
entity: Reading: {
	fields: value: number
}
`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "forbidden")
}

func TestCompileRejectsMissingSubject(t *testing.T) {
	_, err := compileString(t, `
entity: Person: {}
relation: Broken: {
	object: "Person"
}
`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "relation.Broken.subject", ce.Field)
}

func TestCompileRejectsUnknownRelationTypes(t *testing.T) {
	_, err := compileString(t, `
entity: Person: {}
relation: OwnsPet: {
	subject: "Person"
	object:  "Pet"
}
`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "unknown object entity type")
}

func TestCompileRejectsReservedIDField(t *testing.T) {
	_, err := compileString(t, `
entity: Person: {
	fields: id: string
}
`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "reserved")
}

func TestCompileRejectsEmptySchema(t *testing.T) {
	_, err := compileString(t, `x: 1`)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "no entity types")
}
