// Package correction rewrites auto-fixable validation issues in generated
// contract text. Corrections are conservative, purely textual, and
// idempotent: running the engine on already-clean input changes nothing.
package correction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mosaicworks/cadenceforge/validation"
)

// Correction records one rewrite the engine applied.
type Correction struct {
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// Result is the outcome of one correction pass.
type Result struct {
	CorrectedCode      string       `json:"corrected_code"`
	Corrections        []Correction `json:"corrections,omitempty"`
	Success            bool         `json:"success"`
	QualityImprovement float64      `json:"quality_improvement"`
}

// typeDefaults maps Cadence type annotations to safe default values used
// when replacing placeholder assignments.
var typeDefaults = map[string]string{
	"String":  `""`,
	"Int":     "0",
	"UInt64":  "0",
	"UInt32":  "0",
	"UFix64":  "0.0",
	"Fix64":   "0.0",
	"Bool":    "false",
	"Address": "0x0",
}

// typedUndefinedRe captures `: <Type> = undefined` so the replacement can
// match the declared type.
var typedUndefinedRe = regexp.MustCompile(`:\s*([A-Za-z0-9]+)(\??)\s*=\s*undefined\b`)

// trailingAssignRe matches assignments with no right-hand side.
var trailingAssignRe = regexp.MustCompile(`(?m)(:\s*([A-Za-z0-9]+)(\??))?\s*=\s*$`)

// Engine applies rewrite rules keyed by issue type.
type Engine struct{}

// NewEngine creates a correction engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Correct applies rewrite rules for the auto-fixable issues and returns
// the corrected text. Issues the engine has no rule for, or that are not
// auto-fixable, are left untouched; the engine never makes critical
// issues worse. Clean input yields success with no corrections.
func (e *Engine) Correct(text string, issues []validation.Issue) *Result {
	result := &Result{CorrectedCode: text, Success: true}

	fixable := make(map[string]bool)
	for _, issue := range issues {
		if issue.AutoFixable {
			fixable[issue.Type] = true
		}
	}
	if len(fixable) == 0 {
		return result
	}

	if fixable[validation.IssueUndefinedValue] {
		result.CorrectedCode = e.fixUndefined(result.CorrectedCode, result)
	}
	if fixable[validation.IssueIncompleteAssignment] {
		result.CorrectedCode = e.fixTrailingAssignments(result.CorrectedCode, result)
	}
	if fixable[validation.IssueLegacySyntax] {
		result.CorrectedCode = e.fixLegacyTokens(result.CorrectedCode, result)
	}

	return result
}

// fixUndefined replaces placeholder tokens with type-appropriate
// defaults, preferring the declared annotation when present.
func (e *Engine) fixUndefined(text string, result *Result) string {
	count := 0

	text = typedUndefinedRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := typedUndefinedRe.FindStringSubmatch(match)
		typeName, optional := sub[1], sub[2]
		value, ok := typeDefaults[typeName]
		if optional == "?" || !ok {
			value = "nil"
		}
		if optional == "?" {
			count++
			return fmt.Sprintf(": %s? = %s", typeName, value)
		}
		if !ok {
			// Unknown non-optional type: substituting nil would not type
			// check, so leave the token for the next retry to regenerate.
			return match
		}
		count++
		return fmt.Sprintf(": %s = %s", typeName, value)
	})

	if count > 0 {
		result.Corrections = append(result.Corrections, Correction{
			IssueType:   validation.IssueUndefinedValue,
			Description: "replaced 'undefined' placeholders with typed defaults",
			Count:       count,
		})
	}
	return text
}

// fixTrailingAssignments completes assignments that have no right-hand
// side, using the annotation on the same line when one exists.
func (e *Engine) fixTrailingAssignments(text string, result *Result) string {
	count := 0
	text = trailingAssignRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := trailingAssignRe.FindStringSubmatch(match)
		typeName, optional := sub[2], sub[3]

		value := "nil"
		if optional != "?" {
			v, ok := typeDefaults[typeName]
			if !ok {
				return match
			}
			value = v
		}
		count++
		if typeName != "" {
			return fmt.Sprintf(": %s%s = %s", typeName, optional, value)
		}
		return fmt.Sprintf("= %s", value)
	})

	if count > 0 {
		result.Corrections = append(result.Corrections, Correction{
			IssueType:   validation.IssueIncompleteAssignment,
			Description: "completed assignments with typed defaults",
			Count:       count,
		})
	}
	return text
}

// fixLegacyTokens applies the pure token substitutions from the syntax
// checker's table.
func (e *Engine) fixLegacyTokens(text string, result *Result) string {
	count := 0
	for _, token := range validation.FixableLegacyTokens() {
		replacement, ok := validation.LegacyReplacement(token)
		if !ok {
			continue
		}
		n := strings.Count(text, token)
		if n == 0 {
			continue
		}
		text = strings.ReplaceAll(text, token, replacement)
		count += n
	}

	if count > 0 {
		result.Corrections = append(result.Corrections, Correction{
			IssueType:   validation.IssueLegacySyntax,
			Description: "substituted deprecated syntax with Cadence 1.0 equivalents",
			Count:       count,
		})
	}
	return text
}
