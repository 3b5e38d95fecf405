package tools

import (
	"fmt"
	"strings"

	"github.com/inercia/statesqa/pkg/lookup"
)

// Summarize composes a plain-language digest of the lookup results keyed by
// tool name. Missing values are rendered with Placeholder.
func Summarize(results map[string]lookup.Result) string {
	var sentences []string

	if res, ok := results[HospitalizedForStateOnDate.Name()]; ok {
		sentences = append(sentences, fmt.Sprintf("On %s, there were %s hospitalized people in %s.",
			field(res, "date", "the specified date"),
			field(res, "hospitalized", Placeholder),
			field(res, "state", "the specified state")))
	}
	if res, ok := results[PositiveCasesForStateOnDate.Name()]; ok {
		sentences = append(sentences, fmt.Sprintf("The number of positive cases in %s on %s was %s.",
			field(res, "state", "the specified state"),
			field(res, "date", "the specified date"),
			field(res, "positive_cases", Placeholder)))
	}

	return strings.Join(sentences, " ")
}

func field(res lookup.Result, key, fallback string) string {
	if res.IsNotFound() {
		return fallback
	}
	v, ok := res.Record[key]
	if !ok || v == nil {
		return fallback
	}
	return fmt.Sprint(v)
}
