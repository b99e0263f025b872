package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/store"
)

// FamilySchema declares the schema most tests share: Person entities with
// name and age, a storable ParentOf relation, and inferred relations for
// grandparents, siblings, and (recursively) ancestors.
func FamilySchema(t *testing.T) *fact.Schema {
	t.Helper()
	s := fact.NewSchema()
	require.NoError(t, s.AddEntity(fact.EntityType{
		Name: "Person",
		Fields: []fact.Field{
			{Name: "name", Kind: fact.KindString},
			{Name: "age", Kind: fact.KindInt},
		},
	}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "ParentOf", Subject: "Person", Object: "Person"}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "GrandparentOf", Subject: "Person", Object: "Person", Inferred: true}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "SiblingOf", Subject: "Person", Object: "Person", Inferred: true}))
	require.NoError(t, s.AddRelation(fact.Relation{Name: "AncestorOf", Subject: "Person", Object: "Person", Inferred: true}))
	return s
}

// OpenStore opens a provisioned store on a temp file, closed automatically
// when the test ends.
func OpenStore(t *testing.T, s *fact.Schema) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Provision(context.Background(), s))
	return st
}

// Person inserts Person entities with the given keys; the name field mirrors
// the key and age defaults to 40.
func Person(t *testing.T, st *store.Store, keys ...string) {
	t.Helper()
	entities := make([]*store.Entity, 0, len(keys))
	for _, key := range keys {
		entities = append(entities, &store.Entity{
			Type: "Person",
			Key:  key,
			Fields: map[string]fact.Value{
				"name": fact.String(key),
				"age":  fact.Int(40),
			},
		})
	}
	require.NoError(t, st.PutEntities(context.Background(), "Person", entities))
}

// Facts inserts facts, failing the test on any error.
func Facts(t *testing.T, st *store.Store, facts ...fact.Fact) {
	t.Helper()
	require.NoError(t, st.InsertFacts(context.Background(), facts))
}
