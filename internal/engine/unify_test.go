package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/testutil"
)

func TestUnifyBindsVariables(t *testing.T) {
	s := testutil.FamilySchema(t)

	delta, checks, ok := unify(s,
		fact.P("ParentOf", fact.V("p"), fact.V("c")),
		fact.F("ParentOf", "john", "bob"))
	require.True(t, ok)
	assert.Empty(t, checks)
	assert.Equal(t, fact.Bindings{
		"p": fact.EntityRef{Type: "Person", Key: "john"},
		"c": fact.EntityRef{Type: "Person", Key: "bob"},
	}, delta)
}

func TestUnifyConstMismatch(t *testing.T) {
	s := testutil.FamilySchema(t)

	_, _, ok := unify(s,
		fact.P("ParentOf", fact.C("Person", "alice"), fact.V("c")),
		fact.F("ParentOf", "john", "bob"))
	assert.False(t, ok)
}

func TestUnifySameVariableBothPositions(t *testing.T) {
	s := testutil.FamilySchema(t)
	p := fact.P("ParentOf", fact.V("x"), fact.V("x"))

	// Both positions hold the same entity: allowed.
	delta, _, ok := unify(s, p, fact.F("ParentOf", "john", "john"))
	require.True(t, ok)
	assert.Equal(t, fact.Bindings{"x": fact.EntityRef{Type: "Person", Key: "john"}}, delta)

	// Different entities cannot share one variable.
	_, _, ok = unify(s, p, fact.F("ParentOf", "john", "bob"))
	assert.False(t, ok)
}

func TestUnifyCollectsConstraintChecks(t *testing.T) {
	s := testutil.FamilySchema(t)
	adult := fact.Where("age", fact.OpGe, fact.Int(18))

	_, checks, ok := unify(s,
		fact.P("ParentOf", fact.VW("p", adult), fact.V("c")),
		fact.F("ParentOf", "john", "bob"))
	require.True(t, ok)
	require.Len(t, checks, 1)
	assert.Equal(t, fact.EntityRef{Type: "Person", Key: "john"}, checks[0].Ref)
	assert.Equal(t, fact.Predicate(adult), checks[0].Pred)
}

func TestPendingCheckRefsBound(t *testing.T) {
	check := pendingCheck{
		Ref:  fact.EntityRef{Type: "Person", Key: "bob"},
		Pred: fact.Distinct("x"),
	}

	assert.False(t, check.refsBound(fact.Bindings{}))
	assert.True(t, check.refsBound(fact.Bindings{
		"x": fact.EntityRef{Type: "Person", Key: "john"},
	}))
}

func TestGroundKeys(t *testing.T) {
	p := fact.P("ParentOf", fact.C("Person", "john"), fact.V("c"))

	subject, object := groundKeys(p, nil)
	assert.Equal(t, "john", subject)
	assert.Equal(t, "", object)

	subject, object = groundKeys(p, fact.Bindings{
		"c": fact.EntityRef{Type: "Person", Key: "bob"},
	})
	assert.Equal(t, "john", subject)
	assert.Equal(t, "bob", object)
}
