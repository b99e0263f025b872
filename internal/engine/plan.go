package engine

import (
	"github.com/syllog/syllog/internal/fact"
)

// Selectivity scores per pattern position. Grounded positions restrict
// candidate enumeration the most; bare variables not at all.
const (
	scoreGrounded      = 4 // constant, or variable already bound
	scoreSelfContained = 2 // variable with a store-evaluable constraint
	scoreCrossVar      = 1 // variable whose constraint references another variable
	scoreBare          = 0
)

// planOrder orders a conjunction's patterns most-selective-first. The plan is
// greedy: at each step the highest-scoring remaining pattern is chosen under
// the variables bound so far, its variables become bound, and scoring
// repeats. Ties break on declaration order, so planning is deterministic and
// a solution set never depends on the order the caller wrote the patterns in.
func planOrder(patterns []fact.Pattern, seed fact.Bindings) []fact.Pattern {
	if len(patterns) <= 1 {
		return patterns
	}

	bound := make(map[string]bool, len(seed))
	for name := range seed {
		bound[name] = true
	}

	remaining := make([]fact.Pattern, len(patterns))
	copy(remaining, patterns)

	ordered := make([]fact.Pattern, 0, len(patterns))
	for len(remaining) > 0 {
		best := 0
		bestScore := patternScore(remaining[0], bound)
		for i := 1; i < len(remaining); i++ {
			if s := patternScore(remaining[i], bound); s > bestScore {
				best, bestScore = i, s
			}
		}
		chosen := remaining[best]
		ordered = append(ordered, chosen)
		remaining = append(remaining[:best], remaining[best+1:]...)
		for _, name := range chosen.VarNames() {
			bound[name] = true
		}
	}
	return ordered
}

func patternScore(p fact.Pattern, bound map[string]bool) int {
	return termScore(p.Subject, bound) + termScore(p.Object, bound)
}

func termScore(t fact.Term, bound map[string]bool) int {
	switch term := t.(type) {
	case fact.Const:
		return scoreGrounded
	case fact.Var:
		if bound[term.Name] {
			return scoreGrounded
		}
		switch {
		case term.Where == nil:
			return scoreBare
		case fact.SelfContained(term.Where):
			return scoreSelfContained
		default:
			return scoreCrossVar
		}
	default:
		return scoreBare
	}
}
