package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/syllog/syllog/internal/fact"
)

// Snapshot captures a scenario run for golden comparison. Serialization is
// canonical JSON, so snapshots are byte-stable across runs and platforms.
type Snapshot struct {
	ScenarioName string
	Query        []string
	Rows         []fact.Bindings
}

func (s *Snapshot) toCanonicalMap() map[string]any {
	query := make([]any, len(s.Query))
	for i, q := range s.Query {
		query[i] = q
	}
	rows := make([]any, len(s.Rows))
	for i, row := range s.Rows {
		obj := make(map[string]any, len(row))
		for name, val := range row {
			obj[name] = val
		}
		rows[i] = obj
	}
	return map[string]any{
		"scenario": s.ScenarioName,
		"query":    query,
		"rows":     rows,
	}
}

// RunWithGolden executes a scenario and compares the result against
// testdata/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) {
	t.Helper()

	result := Run(t, sc)
	snapshot := &Snapshot{ScenarioName: sc.Name, Query: sc.Query, Rows: result.Rows}

	data, err := fact.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err, "scenario %s: snapshot", sc.Name)

	g := goldie.New(t)
	g.Assert(t, sc.Name, data)
}
