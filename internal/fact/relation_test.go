package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema()
	require.NoError(t, s.AddEntity(EntityType{Name: "Person", Fields: []Field{{Name: "age", Kind: KindInt}}}))
	require.NoError(t, s.AddRelation(Relation{Name: "ParentOf", Subject: "Person", Object: "Person"}))
	return s
}

func TestAddEntityRejectsDuplicates(t *testing.T) {
	s := testSchema(t)
	err := s.AddEntity(EntityType{Name: "Person"})
	assert.ErrorContains(t, err, "duplicate")
}

func TestAddEntityRejectsReservedID(t *testing.T) {
	s := NewSchema()
	err := s.AddEntity(EntityType{Name: "Thing", Fields: []Field{{Name: "id", Kind: KindString}}})
	assert.ErrorContains(t, err, "reserved")
}

func TestAddRelationRequiresDeclaredTypes(t *testing.T) {
	s := testSchema(t)
	err := s.AddRelation(Relation{Name: "OwnsPet", Subject: "Person", Object: "Pet"})
	assert.ErrorContains(t, err, "unknown object entity type")
}

func TestTermType(t *testing.T) {
	s := testSchema(t)

	typ, err := s.TermType("ParentOf", "subject")
	require.NoError(t, err)
	assert.Equal(t, "Person", typ)

	_, err = s.TermType("Unknown", "subject")
	assert.Error(t, err)

	_, err = s.TermType("ParentOf", "middle")
	assert.Error(t, err)
}

func TestDeclarationOrderPreserved(t *testing.T) {
	s := NewSchema()
	require.NoError(t, s.AddEntity(EntityType{Name: "Zebra"}))
	require.NoError(t, s.AddEntity(EntityType{Name: "Apple"}))

	ents := s.Entities()
	require.Len(t, ents, 2)
	assert.Equal(t, "Zebra", ents[0].Name)
	assert.Equal(t, "Apple", ents[1].Name)
}
