// Package validation provides shallow structural validation for generated
// Cadence contract text. The checks are heuristic text scans, not a grammar
// checker. Each check is a pure function of the candidate text, enabling
// auto-retry with feedback when validation fails.
package validation

import (
	"fmt"
	"strings"
)

// Severity classifies how blocking an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Dimension identifies which validation dimension produced a result.
type Dimension string

const (
	DimensionSyntax        Dimension = "syntax"
	DimensionLogic         Dimension = "logic"
	DimensionCompleteness  Dimension = "completeness"
	DimensionBestPractices Dimension = "best-practices"
)

// Issue type identifiers. Correction rules and failure-pattern
// aggregation key off these.
const (
	IssueUndefinedValue       = "undefined-value"
	IssueIncompleteAssignment = "incomplete-assignment"
	IssueBracketMismatch      = "bracket-mismatch"
	IssueLegacySyntax         = "legacy-syntax"
	IssueEmptyFunction        = "empty-function"
	IssueMissingInit          = "missing-init"
	IssueMissingElement       = "missing-element"
	IssueProhibitedPattern    = "prohibited-pattern"
)

// Location pinpoints an issue in the candidate text. Lines and columns
// are 1-based; zero means unknown.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Issue is a single validation finding.
type Issue struct {
	Severity     Severity `json:"severity"`
	Type         string   `json:"type"`
	Location     Location `json:"location"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	AutoFixable  bool     `json:"auto_fixable"`
}

// Result is the outcome of one validation dimension over one candidate.
// Results are owned by the attempt that produced them and never mutated
// afterward.
type Result struct {
	Dimension Dimension `json:"dimension"`
	Passed    bool      `json:"passed"`
	Issues    []Issue   `json:"issues,omitempty"`

	// Score optionally carries a raw dimension score supplied by the
	// check itself. Nil means the scorer starts from 100.
	Score *float64 `json:"score,omitempty"`
}

// CriticalCount returns the number of critical issues in the result.
func (r *Result) CriticalCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// newResult builds a Result with Passed derived from the issues:
// a dimension passes when it has no critical issues.
func newResult(dim Dimension, issues []Issue) *Result {
	passed := true
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			passed = false
			break
		}
	}
	return &Result{Dimension: dim, Passed: passed, Issues: issues}
}

// FormatFeedback renders the results as corrective feedback suitable for
// inclusion in a retry prompt.
func FormatFeedback(results []*Result) string {
	var critical, warnings []string
	for _, r := range results {
		for _, issue := range r.Issues {
			line := issue.Message
			if issue.SuggestedFix != "" {
				line = fmt.Sprintf("%s (fix: %s)", issue.Message, issue.SuggestedFix)
			}
			switch issue.Severity {
			case SeverityCritical:
				critical = append(critical, line)
			case SeverityWarning:
				warnings = append(warnings, line)
			}
		}
	}

	if len(critical) == 0 && len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("The previous attempt had validation problems.\n")
	if len(critical) > 0 {
		sb.WriteString("\nCritical issues that MUST be fixed:\n")
		for _, c := range critical {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
	}
	if len(warnings) > 0 {
		sb.WriteString("\nWarnings to address:\n")
		for _, w := range warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
	}
	return sb.String()
}

// locationOf converts a byte offset in text to a 1-based Location.
func locationOf(text string, offset int) Location {
	if offset < 0 || offset > len(text) {
		return Location{}
	}
	line := 1
	col := 1
	for _, ch := range text[:offset] {
		if ch == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Location{Line: line, Column: col}
}
