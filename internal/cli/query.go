package cli

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syllog/syllog/internal/engine"
	"github.com/syllog/syllog/internal/fact"
)

// patternRe matches one triple pattern: Relation(term, term).
var patternRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)\s*$`)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var noHydrate bool

	cmd := &cobra.Command{
		Use:   `query "Rel(a, ?x)" ...`,
		Short: "Evaluate a conjunctive query",
		Long: `Evaluate one or more triple patterns as a conjunction and print the
satisfying bindings.

Pattern syntax: Relation(subject, object). A term starting with ? is a
variable; any other token is an entity key. The same variable name in
several patterns must bind the same entity.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args, noHydrate, cmd)
		},
	}

	cmd.Flags().BoolVar(&noHydrate, "no-hydrate", false, "print entity keys only, skip field hydration")
	return cmd
}

func runQuery(opts *RootOptions, args []string, noHydrate bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, s, err := openProvisioned(cmd, opts)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return &ExitError{Code: ExitCommandError, Message: "query failed", Err: err}
	}
	defer st.Close()

	patterns := make([]fact.Pattern, 0, len(args))
	for _, arg := range args {
		p, err := ParsePattern(s, arg)
		if err != nil {
			formatter.Error(ErrCodeQuery, err.Error(), nil)
			return &ExitError{Code: ExitFailure, Message: "query failed", Err: err}
		}
		patterns = append(patterns, p)
	}

	eng := engine.New(st, s, nil)
	var solutions []engine.Solution
	if noHydrate {
		solutions, err = eng.QueryBare(cmd.Context(), patterns...)
	} else {
		solutions, err = eng.Query(cmd.Context(), patterns...)
	}
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error(), nil)
		return &ExitError{Code: ExitFailure, Message: "query failed", Err: err}
	}

	if opts.Format == "json" {
		return formatter.Success(solutionsJSON(solutions))
	}
	return formatter.Success(solutionsTable(patterns, solutions))
}

// ParsePattern parses one triple pattern against the schema. Constant terms
// take their entity type from the relation position they occupy.
func ParsePattern(s *fact.Schema, input string) (fact.Pattern, error) {
	m := patternRe.FindStringSubmatch(input)
	if m == nil {
		return fact.Pattern{}, fmt.Errorf("malformed pattern %q: want Relation(term, term)", input)
	}
	relation := m[1]
	if _, ok := s.Relation(relation); !ok {
		return fact.Pattern{}, fmt.Errorf("unknown relation %q", relation)
	}

	subject, err := parseTerm(s, relation, "subject", m[2])
	if err != nil {
		return fact.Pattern{}, err
	}
	object, err := parseTerm(s, relation, "object", m[3])
	if err != nil {
		return fact.Pattern{}, err
	}
	return fact.P(relation, subject, object), nil
}

func parseTerm(s *fact.Schema, relation, pos, token string) (fact.Term, error) {
	token = strings.TrimSpace(token)
	if name, ok := strings.CutPrefix(token, "?"); ok {
		if name == "" {
			return nil, fmt.Errorf("pattern %s: empty variable name", relation)
		}
		return fact.V(name), nil
	}
	entityType, err := s.TermType(relation, pos)
	if err != nil {
		return nil, err
	}
	return fact.C(entityType, token), nil
}

// solutionJSON is one solution rendered for JSON output.
type solutionJSON map[string]solutionValueJSON

type solutionValueJSON struct {
	Type   string         `json:"type,omitempty"`
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields,omitempty"`
}

func solutionsJSON(solutions []engine.Solution) []solutionJSON {
	out := make([]solutionJSON, 0, len(solutions))
	for _, sol := range solutions {
		row := make(solutionJSON, len(sol))
		for name, rv := range sol {
			sv := solutionValueJSON{Key: fact.FormatValue(rv.Value)}
			if ref, ok := rv.Value.(fact.EntityRef); ok {
				sv.Type = ref.Type
				sv.Key = ref.Key
			}
			if rv.Entity != nil {
				sv.Fields = make(map[string]any, len(rv.Entity.Fields))
				for fname, fval := range rv.Entity.Fields {
					sv.Fields[fname] = jsonValue(fval)
				}
			}
			row[name] = sv
		}
		out = append(out, row)
	}
	return out
}

func jsonValue(v fact.Value) any {
	switch val := v.(type) {
	case fact.String:
		return string(val)
	case fact.Int:
		return int64(val)
	case fact.Bool:
		return bool(val)
	default:
		return fact.FormatValue(v)
	}
}

// solutionsTable renders solutions as an aligned text table, one column per
// variable in lexical order.
func solutionsTable(patterns []fact.Pattern, solutions []engine.Solution) string {
	if len(solutions) == 0 {
		return "no solutions"
	}

	names := solutionColumns(patterns, solutions)
	if len(names) == 0 {
		// Fully ground query: existence check.
		return "query holds"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, sol := range solutions {
		cells := make([]string, len(names))
		for i, name := range names {
			if rv, ok := sol[name]; ok {
				cells[i] = fact.FormatValue(rv.Value)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n") + fmt.Sprintf("\n%d solution(s)", len(solutions))
}

func solutionColumns(patterns []fact.Pattern, solutions []engine.Solution) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range patterns {
		for _, name := range p.VarNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 && len(solutions) > 0 {
		for name := range solutions[0] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
