// Package harness runs declarative inference scenarios for tests: a schema
// snippet, seed entities and facts, rules, and a query, executed against a
// temp SQLite file, with expected rows or golden-file comparison.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syllog/syllog/internal/cli"
	"github.com/syllog/syllog/internal/engine"
	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/schema"
	"github.com/syllog/syllog/internal/testutil"
)

// Scenario defines one declarative inference test.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files use it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is an inline CUE schema declaring entities and relations.
	Schema string `yaml:"schema"`

	// Entities seeds entity rows per type, fixture-shaped.
	Entities map[string][]map[string]any `yaml:"entities,omitempty"`

	// Facts seeds storable facts per relation.
	Facts map[string][]cli.FixtureFact `yaml:"facts,omitempty"`

	// Rules registers inference rules before the query runs.
	Rules []RuleSpec `yaml:"rules,omitempty"`

	// Query is the conjunction of patterns to evaluate.
	Query []string `yaml:"query"`

	// Expect lists the expected binding rows (variable name to entity key),
	// order-independent. Empty means the query should yield no solutions;
	// golden scenarios may omit it and rely on the golden file instead.
	Expect []map[string]string `yaml:"expect,omitempty"`
}

// RuleSpec is one rule in scenario YAML. The body is either a single
// conjunction (all) or a disjunction of conjunctions (any).
type RuleSpec struct {
	Head string     `yaml:"head"`
	All  []string   `yaml:"all,omitempty"`
	Any  [][]string `yaml:"any,omitempty"`
}

// Result holds a scenario run's outcome.
type Result struct {
	Rows []fact.Bindings
}

// LoadScenario reads a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(sc.Query) == 0 {
		return nil, fmt.Errorf("scenario %s: query is required", sc.Name)
	}
	return &sc, nil
}

// Run executes the scenario against a fresh temp database and returns the
// query's binding rows in canonical order.
func Run(t *testing.T, sc *Scenario) *Result {
	t.Helper()
	ctx := context.Background()

	cueVal := cuecontext.New().CompileString(sc.Schema)
	s, err := schema.Compile(cueVal)
	require.NoError(t, err, "scenario %s: schema", sc.Name)

	st := testutil.OpenStore(t, s)

	names := testutil.NewSequenceSource()
	fx := &cli.Fixture{Entities: sc.Entities, Facts: sc.Facts}
	entities, err := cli.FixtureEntities(s, fx, func() string { return names.Fresh("entity") })
	require.NoError(t, err, "scenario %s: entities", sc.Name)
	typeNames := make([]string, 0, len(entities))
	for typeName := range entities {
		typeNames = append(typeNames, typeName)
	}
	sort.Strings(typeNames)
	for _, typeName := range typeNames {
		require.NoError(t, st.PutEntities(ctx, typeName, entities[typeName]))
	}
	facts, err := cli.FixtureFacts(s, fx)
	require.NoError(t, err, "scenario %s: facts", sc.Name)
	require.NoError(t, st.InsertFacts(ctx, facts))

	rules := engine.NewRuleSet(s, names)
	for _, spec := range sc.Rules {
		rule, err := compileRule(s, spec)
		require.NoError(t, err, "scenario %s: rule %s", sc.Name, spec.Head)
		_, err = rules.Register(rule)
		require.NoError(t, err, "scenario %s: rule %s", sc.Name, spec.Head)
	}

	eng := engine.New(st, s, rules, engine.WithNameSource(names))
	patterns := make([]fact.Pattern, 0, len(sc.Query))
	for _, q := range sc.Query {
		p, err := cli.ParsePattern(s, q)
		require.NoError(t, err, "scenario %s: query %q", sc.Name, q)
		patterns = append(patterns, p)
	}

	rows, err := eng.QueryKeys(ctx, patterns...)
	require.NoError(t, err, "scenario %s: query", sc.Name)
	sortRows(rows)
	return &Result{Rows: rows}
}

// RunAndAssert runs the scenario and checks its expected rows,
// order-independent.
func RunAndAssert(t *testing.T, sc *Scenario) {
	t.Helper()
	result := Run(t, sc)

	got := make([]map[string]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		m := make(map[string]string, len(row))
		for name, val := range row {
			ref, ok := val.(fact.EntityRef)
			require.True(t, ok, "scenario %s: variable %s bound to non-entity", sc.Name, name)
			m[name] = ref.Key
		}
		got = append(got, m)
	}

	require.ElementsMatch(t, sc.Expect, got, "scenario %s", sc.Name)
}

func compileRule(s *fact.Schema, spec RuleSpec) (fact.Rule, error) {
	head, err := cli.ParsePattern(s, spec.Head)
	if err != nil {
		return fact.Rule{}, err
	}
	if len(spec.All) > 0 && len(spec.Any) > 0 {
		return fact.Rule{}, fmt.Errorf("rule %s: use either all or any, not both", spec.Head)
	}

	if len(spec.All) > 0 {
		terms, err := parseConjunction(s, spec.All)
		if err != nil {
			return fact.Rule{}, err
		}
		return fact.NewRule(head, terms...), nil
	}

	alternatives := make([]fact.Body, 0, len(spec.Any))
	for _, conj := range spec.Any {
		terms, err := parseConjunction(s, conj)
		if err != nil {
			return fact.Rule{}, err
		}
		alternatives = append(alternatives, fact.All(terms...))
	}
	return fact.NewRule(head, fact.Any(alternatives...)), nil
}

func parseConjunction(s *fact.Schema, inputs []string) ([]fact.Body, error) {
	terms := make([]fact.Body, 0, len(inputs))
	for _, input := range inputs {
		p, err := cli.ParsePattern(s, input)
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	return terms, nil
}

// sortRows orders binding rows by their canonical JSON encoding so run
// output is byte-stable for golden comparison.
func sortRows(rows []fact.Bindings) {
	sort.Slice(rows, func(i, j int) bool {
		a, _ := fact.MarshalCanonical(rows[i])
		b, _ := fact.MarshalCanonical(rows[j])
		return bytes.Compare(a, b) < 0
	})
}
