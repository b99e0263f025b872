package harness

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/schema"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)
	return sc
}

func TestGrandparentsScenario(t *testing.T) {
	sc := loadTestdata(t, "grandparents.yaml")
	RunAndAssert(t, sc)
}

func TestGrandparentsGolden(t *testing.T) {
	sc := loadTestdata(t, "grandparents.yaml")
	RunWithGolden(t, sc)
}

func TestAccessScenario(t *testing.T) {
	sc := loadTestdata(t, "access.yaml")
	RunAndAssert(t, sc)
}

func TestAncestorsScenario(t *testing.T) {
	sc := loadTestdata(t, "ancestors.yaml")
	RunAndAssert(t, sc)
}

func TestRunReturnsCanonicallyOrderedRows(t *testing.T) {
	sc := loadTestdata(t, "grandparents.yaml")
	result := Run(t, sc)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, fact.Bindings{"x": fact.EntityRef{Type: "Person", Key: "bob"}}, result.Rows[0])
	assert.Equal(t, fact.Bindings{"x": fact.EntityRef{Type: "Person", Key: "charlie"}}, result.Rows[1])
}

func TestLoadScenarioValidation(t *testing.T) {
	dir := t.TempDir()

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("query: [\"X(a, b)\"]\n"), 0o644))
	_, err := LoadScenario(noName)
	assert.ErrorContains(t, err, "name is required")

	noQuery := filepath.Join(dir, "noquery.yaml")
	require.NoError(t, os.WriteFile(noQuery, []byte("name: x\n"), 0o644))
	_, err = LoadScenario(noQuery)
	assert.ErrorContains(t, err, "query is required")

	_, err = LoadScenario(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read scenario")
}

func TestCompileRuleRejectsMixedBody(t *testing.T) {
	sc := loadTestdata(t, "grandparents.yaml")
	s, err := schema.Compile(cuecontext.New().CompileString(sc.Schema))
	require.NoError(t, err)

	_, err = compileRule(s, RuleSpec{
		Head: "GrandparentOf(?g, ?c)",
		All:  []string{"ParentOf(?g, ?c)"},
		Any:  [][]string{{"ParentOf(?g, ?c)"}},
	})
	assert.ErrorContains(t, err, "use either all or any")
}
