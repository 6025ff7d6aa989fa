package validation

import (
	"fmt"
	"strings"

	"github.com/mosaicworks/cadenceforge/contract"
)

// Validator runs all validation dimensions over a candidate text.
// It is stateless; a single Validator may be shared across sessions.
type Validator struct {
	// ProhibitedPatterns are substrings that must not appear in accepted
	// code, supplied by the session's quality requirements.
	ProhibitedPatterns []string
}

// NewValidator creates a validator with no prohibited patterns.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate produces one Result per validation dimension for the
// candidate text. It is deterministic and has no side effects.
func (v *Validator) Validate(text string, ct contract.Type) []*Result {
	results := []*Result{
		CheckSyntax(text),
		ScanUndefined(text),
		CheckCompleteness(text),
		CheckStructure(text, ct),
	}

	if bp := v.checkProhibited(text); bp != nil {
		results = append(results, bp)
	}

	return results
}

// checkProhibited scans for caller-prohibited patterns. Findings land in
// the best-practices dimension so they penalize without masking syntax
// or completeness problems.
func (v *Validator) checkProhibited(text string) *Result {
	if len(v.ProhibitedPatterns) == 0 {
		return nil
	}

	var issues []Issue
	for _, pattern := range v.ProhibitedPatterns {
		idx := strings.Index(text, pattern)
		if idx < 0 {
			continue
		}
		issues = append(issues, Issue{
			Severity:    SeverityCritical,
			Type:        IssueProhibitedPattern,
			Location:    locationOf(text, idx),
			Message:     fmt.Sprintf("prohibited pattern %q present", pattern),
			AutoFixable: false,
		})
	}

	return newResult(DimensionBestPractices, issues)
}

// AllPassed reports whether every result passed (no critical issues in
// any dimension).
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CollectIssues flattens all issues across results.
func CollectIssues(results []*Result) []Issue {
	var issues []Issue
	for _, r := range results {
		issues = append(issues, r.Issues...)
	}
	return issues
}
