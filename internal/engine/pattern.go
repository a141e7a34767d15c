package engine

import (
	"strings"

	"github.com/continuo/continuo/pkg/types"
)

const (
	// initialConfidence is the neutral prior for a newly created pattern.
	initialConfidence = 0.5

	// reinforcementRate is the fraction of the remaining gap to 1 that a
	// single reinforcement closes. No single update crosses more of the
	// gap than this.
	reinforcementRate = 0.1

	// contradictionThreshold is the confidence above which a failure
	// outcome halves the pattern instead of reinforcing it. A single
	// counterexample meaningfully discounts a confident pattern.
	contradictionThreshold = 0.5
)

// UpdateConfidence applies one evaluated outcome to a pattern's
// confidence and reports whether the update was a contradiction reset.
// Reinforcement saturates toward 1 and never exceeds it; a failure
// against a confident pattern halves it instead. The result always stays
// within [0,1]. Pure function, independent of storage.
func UpdateConfidence(old float64, outcome types.DecisionOutcome) (confidence float64, contradiction bool) {
	if old < 0 {
		old = 0
	}
	if old > 1 {
		old = 1
	}
	if outcome == types.OutcomeFailure && old > contradictionThreshold {
		return old / 2, true
	}
	return old + (1-old)*reinforcementRate, false
}

// PatternKey derives the lookup key a decision reinforces: the decision's
// context category plus the normalized shape of the chosen option. Two
// decisions in the same category choosing the same kind of option land on
// the same pattern.
func PatternKey(d *types.Decision) string {
	category := d.Category
	if category == "" {
		category = "general"
	}
	return category + "|" + optionShape(d.ChosenOption)
}

// optionShape normalizes an option string: lowercased with whitespace
// runs collapsed, so cosmetic differences do not split a pattern.
func optionShape(option string) string {
	return strings.Join(strings.Fields(strings.ToLower(option)), " ")
}
