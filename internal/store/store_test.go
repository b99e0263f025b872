package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
)

func familySchema(t *testing.T) *fact.Schema {
	t.Helper()
	s := fact.NewSchema()
	require.NoError(t, s.AddEntity(fact.EntityType{
		Name: "Person",
		Fields: []fact.Field{
			{Name: "name", Kind: fact.KindString},
			{Name: "age", Kind: fact.KindInt},
			{Name: "active", Kind: fact.KindBool},
		},
	}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "ParentOf", Subject: "Person", Object: "Person"}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "GrandparentOf", Subject: "Person", Object: "Person", Inferred: true}))
	return s
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Provision(context.Background(), familySchema(t)))
	return st
}

func putPeople(t *testing.T, st *Store, keys ...string) {
	t.Helper()
	entities := make([]*Entity, 0, len(keys))
	for _, key := range keys {
		entities = append(entities, &Entity{
			Type: "Person",
			Key:  key,
			Fields: map[string]fact.Value{
				"name":   fact.String(key),
				"age":    fact.Int(30),
				"active": fact.Bool(true),
			},
		})
	}
	require.NoError(t, st.PutEntities(context.Background(), "Person", entities))
}

func TestOpenAndProvisionIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Provision(ctx, familySchema(t)))
	require.NoError(t, st.Close())

	// Reopen and reprovision the same file.
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Provision(ctx, familySchema(t)))
}

func TestInsertFactsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice")

	f := fact.F("ParentOf", "john", "alice")
	require.NoError(t, st.InsertFacts(ctx, []fact.Fact{f}))
	require.NoError(t, st.InsertFacts(ctx, []fact.Fact{f}))

	facts, err := st.FactsByPattern(ctx, "ParentOf", "", "")
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestInsertInferredFactRejected(t *testing.T) {
	st := openTestStore(t)
	putPeople(t, st, "john", "bob")

	err := st.InsertFacts(context.Background(), []fact.Fact{fact.F("GrandparentOf", "john", "bob")})
	var inferred *ErrInferredFact
	require.ErrorAs(t, err, &inferred)
	assert.Equal(t, "GrandparentOf", inferred.Relation)
}

func TestFactsByPatternFiltersAndOrders(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice", "bob", "zoe")
	require.NoError(t, st.InsertFacts(ctx, []fact.Fact{
		fact.F("ParentOf", "zoe", "bob"),
		fact.F("ParentOf", "john", "alice"),
		fact.F("ParentOf", "john", "bob"),
	}))

	all, err := st.FactsByPattern(ctx, "ParentOf", "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, fact.F("ParentOf", "john", "alice"), all[0])
	assert.Equal(t, fact.F("ParentOf", "john", "bob"), all[1])
	assert.Equal(t, fact.F("ParentOf", "zoe", "bob"), all[2])

	bySubject, err := st.FactsByPattern(ctx, "ParentOf", "john", "")
	require.NoError(t, err)
	assert.Len(t, bySubject, 2)

	byBoth, err := st.FactsByPattern(ctx, "ParentOf", "john", "bob")
	require.NoError(t, err)
	assert.Len(t, byBoth, 1)

	none, err := st.FactsByPattern(ctx, "ParentOf", "alice", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFactsByPatternRejectsInferred(t *testing.T) {
	st := openTestStore(t)
	_, err := st.FactsByPattern(context.Background(), "GrandparentOf", "", "")
	assert.ErrorContains(t, err, "inferred")
}

func TestRetractionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice")

	f := fact.F("ParentOf", "john", "alice")
	require.NoError(t, st.InsertFacts(ctx, []fact.Fact{f}))
	require.NoError(t, st.DeleteFacts(ctx, []fact.Fact{f}))

	facts, err := st.FactsByPattern(ctx, "ParentOf", "", "")
	require.NoError(t, err)
	assert.Empty(t, facts)

	// Retracting again is a no-op, not an error.
	require.NoError(t, st.DeleteFacts(ctx, []fact.Fact{f}))
}

func TestDeleteEntityCascadesFacts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice")
	require.NoError(t, st.InsertFacts(ctx, []fact.Fact{fact.F("ParentOf", "john", "alice")}))

	require.NoError(t, st.DeleteEntities(ctx, "Person", []string{"alice"}))

	facts, err := st.FactsByPattern(ctx, "ParentOf", "", "")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestEntitiesByKeys(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice")

	got, err := st.EntitiesByKeys(ctx, "Person", []string{"john", "alice", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	john := got["john"]
	require.NotNil(t, john)
	assert.Equal(t, fact.Value(fact.String("john")), john.Fields["name"])
	assert.Equal(t, fact.Value(fact.Int(30)), john.Fields["age"])
	assert.Equal(t, fact.Value(fact.Bool(true)), john.Fields["active"])
}

func TestPutEntitiesUpserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john")

	require.NoError(t, st.PutEntities(ctx, "Person", []*Entity{{
		Type:   "Person",
		Key:    "john",
		Fields: map[string]fact.Value{"name": fact.String("John Sr."), "age": fact.Int(65)},
	}}))

	got, err := st.EntitiesByKeys(ctx, "Person", []string{"john"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fact.Value(fact.String("John Sr.")), got["john"].Fields["name"])
	assert.Equal(t, fact.Value(fact.Int(65)), got["john"].Fields["age"])
}

func TestPutEntitiesRejectsWrongKind(t *testing.T) {
	st := openTestStore(t)
	err := st.PutEntities(context.Background(), "Person", []*Entity{{
		Type:   "Person",
		Key:    "x",
		Fields: map[string]fact.Value{"age": fact.String("old")},
	}})
	assert.ErrorContains(t, err, "want int")
}

func TestEvaluatePredicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john")

	ok, err := st.EvaluatePredicate(ctx, "Person", "john", fact.Where("age", fact.OpGe, fact.Int(18)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.EvaluatePredicate(ctx, "Person", "john", fact.Where("age", fact.OpGt, fact.Int(30)))
	require.NoError(t, err)
	assert.False(t, ok)

	// Nil predicate is vacuously true.
	ok, err = st.EvaluatePredicate(ctx, "Person", "john", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Missing entity satisfies nothing.
	ok, err = st.EvaluatePredicate(ctx, "Person", "ghost", fact.Where("age", fact.OpGe, fact.Int(0)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluatePredicateOnID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john")

	ok, err := st.EvaluatePredicate(ctx, "Person", "john",
		fact.Where("id", fact.OpNe, fact.String("alice")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.EvaluatePredicate(ctx, "Person", "john",
		fact.Where("id", fact.OpNe, fact.String("john")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterKeys(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	putPeople(t, st, "john", "alice")
	require.NoError(t, st.PutEntities(ctx, "Person", []*Entity{{
		Type:   "Person",
		Key:    "kid",
		Fields: map[string]fact.Value{"age": fact.Int(7)},
	}}))

	adults, err := st.FilterKeys(ctx, "Person", []string{"john", "alice", "kid"},
		fact.Where("age", fact.OpGe, fact.Int(18)))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "john"}, adults)
}

func TestUnknownRelationAndType(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.FactsByPattern(ctx, "Nope", "", "")
	assert.ErrorContains(t, err, "unknown relation")

	_, err = st.EntitiesByKeys(ctx, "Alien", []string{"x"})
	assert.ErrorContains(t, err, "unknown entity type")
}

func TestTableNaming(t *testing.T) {
	assert.Equal(t, "entity_person", entityTable("Person"))
	assert.Equal(t, "fact_parent_of", relationTable("ParentOf"))
	assert.Equal(t, "fact_grandparent_of", relationTable("GrandparentOf"))
}
