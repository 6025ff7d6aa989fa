package pipeline

import (
	"github.com/mosaicworks/cadenceforge/prompts"
	"github.com/mosaicworks/cadenceforge/validation"
)

// FailureGenerationError is the pattern type recorded when the external
// generation call throws or times out.
const FailureGenerationError = "generation-error"

// maxCausesPerPattern caps the cause list so pathological sessions do
// not grow patterns without bound.
const maxCausesPerPattern = 5

// cannedSolutions supplies advice per failure-pattern type, appended to
// whatever suggested fixes the issues themselves carry.
var cannedSolutions = map[string][]string{
	FailureGenerationError:               {"retry with a shorter, simpler prompt"},
	validation.IssueUndefinedValue:       {"initialize every variable with a concrete value"},
	validation.IssueIncompleteAssignment: {"complete every assignment and type annotation"},
	validation.IssueBracketMismatch:      {"ensure all braces, brackets, and parentheses balance"},
	validation.IssueLegacySyntax:         {"use Cadence 1.0 access(all)/access(self) syntax"},
	validation.IssueEmptyFunction:        {"implement every declared function"},
	validation.IssueMissingInit:          {"add an init() block"},
	validation.IssueMissingElement:       {"include all required interfaces and resources for the contract type"},
	validation.IssueProhibitedPattern:    {"remove all prohibited constructs"},
}

// extractPatterns derives failure patterns from one attempt's validation
// results. Info-severity issues are diagnostics, not failures, and are
// excluded.
func extractPatterns(results []*validation.Result) []FailurePattern {
	byType := make(map[string]*FailurePattern)
	var order []string

	for _, r := range results {
		for _, issue := range r.Issues {
			if issue.Severity == validation.SeverityInfo {
				continue
			}
			p, ok := byType[issue.Type]
			if !ok {
				p = &FailurePattern{
					Type:               issue.Type,
					SuggestedSolutions: cannedSolutions[issue.Type],
				}
				byType[issue.Type] = p
				order = append(order, issue.Type)
			}
			p.Frequency++
			if len(p.CommonCauses) < maxCausesPerPattern && !contains(p.CommonCauses, issue.Message) {
				p.CommonCauses = append(p.CommonCauses, issue.Message)
			}
		}
	}

	patterns := make([]FailurePattern, 0, len(order))
	for _, t := range order {
		patterns = append(patterns, *byType[t])
	}
	return patterns
}

// generationErrorPattern builds the pattern for a failed external call.
func generationErrorPattern(cause string) FailurePattern {
	return FailurePattern{
		Type:               FailureGenerationError,
		Frequency:          1,
		CommonCauses:       []string{cause},
		SuggestedSolutions: cannedSolutions[FailureGenerationError],
	}
}

// mergePatterns folds new patterns into the session accumulator. A
// pattern of the same type increments frequency rather than duplicating;
// the accumulator is returned as a new slice, never mutated in place.
func mergePatterns(accumulated, incoming []FailurePattern) []FailurePattern {
	merged := make([]FailurePattern, len(accumulated))
	copy(merged, accumulated)

	for _, in := range incoming {
		found := false
		for i := range merged {
			if merged[i].Type != in.Type {
				continue
			}
			found = true
			merged[i].Frequency += in.Frequency
			for _, cause := range in.CommonCauses {
				if len(merged[i].CommonCauses) < maxCausesPerPattern && !contains(merged[i].CommonCauses, cause) {
					merged[i].CommonCauses = append(merged[i].CommonCauses, cause)
				}
			}
		}
		if !found {
			merged = append(merged, in)
		}
	}
	return merged
}

// adviceFromPatterns converts accumulated patterns into the must-avoid
// clauses for the next enhanced prompt.
func adviceFromPatterns(patterns []FailurePattern) []prompts.FailureAdvice {
	advice := make([]prompts.FailureAdvice, 0, len(patterns))
	for _, p := range patterns {
		advice = append(advice, prompts.FailureAdvice{
			Type:      p.Type,
			Solutions: p.SuggestedSolutions,
		})
	}
	return advice
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// patternFrequency returns the accumulated frequency for a pattern type.
func patternFrequency(patterns []FailurePattern, patternType string) int {
	for _, p := range patterns {
		if p.Type == patternType {
			return p.Frequency
		}
	}
	return 0
}
