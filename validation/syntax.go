package validation

import (
	"fmt"
	"strings"
)

// legacyToken describes a pre-Cadence-1.0 token that must not appear in
// generated code. Fixable tokens have a pure textual replacement; the
// rest require a structural rewrite and are not auto-fixable.
type legacyToken struct {
	token       string
	replacement string
	fixable     bool
}

// legacyTokens lists deprecated Cadence syntax. Replacements follow the
// Cadence 1.0 migration guide.
var legacyTokens = []legacyToken{
	{token: "pub(set) ", replacement: "access(all) ", fixable: true},
	{token: "pub ", replacement: "access(all) ", fixable: true},
	{token: "priv ", replacement: "access(self) ", fixable: true},
	{token: "AuthAccount", replacement: "&Account", fixable: false},
	{token: "PublicAccount", replacement: "&Account", fixable: false},
	{token: "destroy()", replacement: "", fixable: false},
}

// bracket pairs tracked by the balance check.
var bracketPairs = []struct {
	open  byte
	close byte
	name  string
}{
	{'{', '}', "braces"},
	{'[', ']', "brackets"},
	{'(', ')', "parentheses"},
}

// CheckSyntax runs the shallow syntax check: bracket balancing across the
// whole text plus a legacy-token scan. Any nonzero bracket count is one
// critical, non-fixable issue per bracket kind. This is a heuristic gate,
// not a grammar checker.
func CheckSyntax(text string) *Result {
	var issues []Issue

	for _, pair := range bracketPairs {
		balance := strings.Count(text, string(pair.open)) - strings.Count(text, string(pair.close))
		if balance != 0 {
			issues = append(issues, Issue{
				Severity:    SeverityCritical,
				Type:        IssueBracketMismatch,
				Message:     fmt.Sprintf("unbalanced %s: %+d", pair.name, balance),
				AutoFixable: false,
			})
		}
	}

	for _, lt := range legacyTokens {
		idx := strings.Index(text, lt.token)
		if idx < 0 {
			continue
		}
		issue := Issue{
			Severity:    SeverityCritical,
			Type:        IssueLegacySyntax,
			Location:    locationOf(text, idx),
			Message:     fmt.Sprintf("deprecated Cadence syntax %q", strings.TrimSpace(lt.token)),
			AutoFixable: lt.fixable,
		}
		if lt.fixable {
			issue.SuggestedFix = fmt.Sprintf("replace with %q", strings.TrimSpace(lt.replacement))
		}
		issues = append(issues, issue)
	}

	return newResult(DimensionSyntax, issues)
}

// LegacyReplacement returns the safe substitution for a deprecated token,
// if one exists. Used by the correction engine.
func LegacyReplacement(token string) (string, bool) {
	for _, lt := range legacyTokens {
		if lt.token == token && lt.fixable {
			return lt.replacement, true
		}
	}
	return "", false
}

// ContainsLegacyToken reports whether text contains any deprecated token
// the syntax check would flag.
func ContainsLegacyToken(text string) bool {
	for _, lt := range legacyTokens {
		if strings.Contains(text, lt.token) {
			return true
		}
	}
	return false
}

// FixableLegacyTokens returns the deprecated tokens with pure textual
// replacements, in scan order.
func FixableLegacyTokens() []string {
	var tokens []string
	for _, lt := range legacyTokens {
		if lt.fixable {
			tokens = append(tokens, lt.token)
		}
	}
	return tokens
}
