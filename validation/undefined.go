package validation

import (
	"regexp"
)

// Pre-compiled patterns for the undefined-value scan.
var (
	// undefinedRe matches the literal placeholder token emitted by broken
	// generations, as a standalone word.
	undefinedRe = regexp.MustCompile(`\bundefined\b`)

	// trailingAssignRe matches an assignment with nothing after the equals
	// sign before end of line.
	trailingAssignRe = regexp.MustCompile(`(?m)=\s*$`)

	// trailingTypeRe matches a type annotation colon with nothing following
	// before end of line.
	trailingTypeRe = regexp.MustCompile(`(?m):\s*$`)
)

// ScanUndefined flags literal placeholder tokens and incomplete
// assignments or type annotations. All findings are critical and
// auto-fixable: the correction engine substitutes type-appropriate
// defaults.
func ScanUndefined(text string) *Result {
	var issues []Issue

	for _, match := range undefinedRe.FindAllStringIndex(text, -1) {
		issues = append(issues, Issue{
			Severity:     SeverityCritical,
			Type:         IssueUndefinedValue,
			Location:     locationOf(text, match[0]),
			Message:      "literal 'undefined' placeholder in generated code",
			SuggestedFix: "replace with a concrete value matching the declared type",
			AutoFixable:  true,
		})
	}

	for _, match := range trailingAssignRe.FindAllStringIndex(text, -1) {
		issues = append(issues, Issue{
			Severity:     SeverityCritical,
			Type:         IssueIncompleteAssignment,
			Location:     locationOf(text, match[0]),
			Message:      "assignment with no right-hand side",
			SuggestedFix: "complete the assignment with a value",
			AutoFixable:  true,
		})
	}

	for _, match := range trailingTypeRe.FindAllStringIndex(text, -1) {
		issues = append(issues, Issue{
			Severity:     SeverityCritical,
			Type:         IssueIncompleteAssignment,
			Location:     locationOf(text, match[0]),
			Message:      "type annotation with no type following",
			SuggestedFix: "complete the type annotation",
			AutoFixable:  true,
		})
	}

	return newResult(DimensionCompleteness, issues)
}
