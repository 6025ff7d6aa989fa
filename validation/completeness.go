package validation

import (
	"fmt"
	"regexp"
)

var (
	// emptyFunRe matches a fun declaration whose body is empty or
	// whitespace-only.
	emptyFunRe = regexp.MustCompile(`(?m)fun\s+(\w+)\s*\([^)]*\)[^{]*\{\s*\}`)

	// contractDeclRe matches a top-level contract declaration.
	contractDeclRe = regexp.MustCompile(`(?m)contract\s+(\w+)`)

	// initRe matches a contract initializer.
	initRe = regexp.MustCompile(`(?m)\binit\s*\(`)
)

// initExempt lists function names whose empty bodies are conventional,
// not incomplete. An empty init is a legitimate minimal contract.
var initExempt = map[string]bool{"init": true}

// CheckCompleteness flags empty function bodies as critical and a
// top-level contract declaration lacking an initializer as a warning.
func CheckCompleteness(text string) *Result {
	var issues []Issue

	for _, match := range emptyFunRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[match[2]:match[3]]
		if initExempt[name] {
			continue
		}
		issues = append(issues, Issue{
			Severity:     SeverityCritical,
			Type:         IssueEmptyFunction,
			Location:     locationOf(text, match[0]),
			Message:      fmt.Sprintf("function %q has an empty body", name),
			SuggestedFix: "implement the function or remove it",
			AutoFixable:  false,
		})
	}

	if decl := contractDeclRe.FindStringSubmatchIndex(text); decl != nil {
		if !initRe.MatchString(text) {
			name := text[decl[2]:decl[3]]
			issues = append(issues, Issue{
				Severity:     SeverityWarning,
				Type:         IssueMissingInit,
				Location:     locationOf(text, decl[0]),
				Message:      fmt.Sprintf("contract %q has no init() initializer", name),
				SuggestedFix: "add an init() block initializing contract state",
				AutoFixable:  false,
			})
		}
	}

	return newResult(DimensionCompleteness, issues)
}
