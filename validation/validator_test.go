package validation

import (
	"strings"
	"testing"

	"github.com/mosaicworks/cadenceforge/contract"
)

func TestScanUndefined(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantIssues    int
		wantAutoFix   bool
		wantCriticals int
	}{
		{
			name:          "literal undefined placeholder",
			text:          "access(all) contract T { var x: String = undefined init() {} }",
			wantIssues:    1,
			wantAutoFix:   true,
			wantCriticals: 1,
		},
		{
			name:       "clean code",
			text:       "access(all) contract T { init() {} }",
			wantIssues: 0,
		},
		{
			name:          "trailing assignment",
			text:          "let balance =\n",
			wantIssues:    1,
			wantAutoFix:   true,
			wantCriticals: 1,
		},
		{
			name:          "trailing type annotation",
			text:          "var supply:\n",
			wantIssues:    1,
			wantAutoFix:   true,
			wantCriticals: 1,
		},
		{
			name:       "undefined as substring is not flagged",
			text:       "let undefinedBehavior = 1",
			wantIssues: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScanUndefined(tt.text)
			if len(result.Issues) != tt.wantIssues {
				t.Fatalf("issues = %d, want %d: %+v", len(result.Issues), tt.wantIssues, result.Issues)
			}
			if result.CriticalCount() != tt.wantCriticals {
				t.Errorf("criticals = %d, want %d", result.CriticalCount(), tt.wantCriticals)
			}
			for _, issue := range result.Issues {
				if issue.AutoFixable != tt.wantAutoFix {
					t.Errorf("auto_fixable = %v, want %v", issue.AutoFixable, tt.wantAutoFix)
				}
			}
			if tt.wantIssues > 0 && result.Passed {
				t.Error("result passed despite critical issues")
			}
		})
	}
}

func TestCheckSyntaxBrackets(t *testing.T) {
	// Three opening braces, two closing: exactly one critical,
	// non-fixable bracket-mismatch issue.
	text := "contract T { fun a() { if x { } }"
	result := CheckSyntax(text)

	var mismatches []Issue
	for _, issue := range result.Issues {
		if issue.Type == IssueBracketMismatch {
			mismatches = append(mismatches, issue)
		}
	}
	if len(mismatches) != 1 {
		t.Fatalf("bracket-mismatch issues = %d, want 1", len(mismatches))
	}
	if mismatches[0].Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical", mismatches[0].Severity)
	}
	if mismatches[0].AutoFixable {
		t.Error("bracket mismatch must not be auto-fixable")
	}
}

func TestCheckSyntaxBalanced(t *testing.T) {
	text := "access(all) contract T { init() { self.x = [1, 2] } }"
	result := CheckSyntax(text)
	if !result.Passed {
		t.Errorf("balanced text failed syntax check: %+v", result.Issues)
	}
}

func TestCheckSyntaxLegacyTokens(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantFixable bool
	}{
		{"pub keyword", "pub contract T { init() {} }", true},
		{"pub(set) modifier", "pub(set) var x: Int", true},
		{"priv keyword", "priv let secret: String", true},
		{"AuthAccount type", "fun setup(account: AuthAccount) { account.save() }", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckSyntax(tt.text)
			var legacy []Issue
			for _, issue := range result.Issues {
				if issue.Type == IssueLegacySyntax {
					legacy = append(legacy, issue)
				}
			}
			if len(legacy) == 0 {
				t.Fatal("expected a legacy-syntax issue")
			}
			if legacy[0].AutoFixable != tt.wantFixable {
				t.Errorf("auto_fixable = %v, want %v", legacy[0].AutoFixable, tt.wantFixable)
			}
			if legacy[0].Severity != SeverityCritical {
				t.Errorf("severity = %s, want critical", legacy[0].Severity)
			}
		})
	}
}

func TestCheckCompleteness(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantType     string
		wantSeverity Severity
	}{
		{
			name:         "empty function body",
			text:         "access(all) contract T { access(all) fun mint() {} init() { self.x = 1 } }",
			wantType:     IssueEmptyFunction,
			wantSeverity: SeverityCritical,
		},
		{
			name:         "contract without init",
			text:         "access(all) contract T { access(all) fun mint() { emit Minted() } }",
			wantType:     IssueMissingInit,
			wantSeverity: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckCompleteness(tt.text)
			found := false
			for _, issue := range result.Issues {
				if issue.Type == tt.wantType {
					found = true
					if issue.Severity != tt.wantSeverity {
						t.Errorf("severity = %s, want %s", issue.Severity, tt.wantSeverity)
					}
				}
			}
			if !found {
				t.Errorf("expected issue type %s, got %+v", tt.wantType, result.Issues)
			}
		})
	}
}

func TestCheckCompletenessEmptyInitAllowed(t *testing.T) {
	result := CheckCompleteness("access(all) contract T { init() {} }")
	for _, issue := range result.Issues {
		if issue.Type == IssueEmptyFunction {
			t.Errorf("empty init() flagged as incomplete: %+v", issue)
		}
	}
}

func TestCheckStructure(t *testing.T) {
	nft := contract.Type{Category: contract.CategoryNFT}

	t.Run("missing load-bearing elements are critical", func(t *testing.T) {
		result := CheckStructure("access(all) contract Bare { init() {} }", nft)
		if result.Passed {
			t.Fatal("bare contract passed NFT structural check")
		}
		if result.Dimension != DimensionLogic {
			t.Errorf("dimension = %s, want logic", result.Dimension)
		}
		if result.CriticalCount() == 0 {
			t.Error("expected critical issues for missing NonFungibleToken conformance")
		}
	})

	t.Run("advisory elements are warnings", func(t *testing.T) {
		text := `import NonFungibleToken from 0x1
access(all) contract Full {
    access(all) resource NFT {}
    access(all) resource Collection {}
    access(all) fun createEmptyCollection(): @Collection { return <- create Collection() }
    init() {}
}`
		result := CheckStructure(text, nft)
		if result.CriticalCount() != 0 {
			t.Fatalf("unexpected criticals: %+v", result.Issues)
		}
		// MetadataViews and events are advisory.
		if len(result.Issues) == 0 {
			t.Error("expected advisory warnings for missing metadata views")
		}
		for _, issue := range result.Issues {
			if issue.Severity != SeverityWarning {
				t.Errorf("advisory issue has severity %s", issue.Severity)
			}
		}
	})
}

func TestValidatorProhibitedPatterns(t *testing.T) {
	v := &Validator{ProhibitedPatterns: []string{"unsafeRandom"}}
	results := v.Validate("access(all) contract T { init() { let r = unsafeRandom() } }",
		contract.Type{Category: contract.CategoryGeneric})

	found := false
	for _, r := range results {
		for _, issue := range r.Issues {
			if issue.Type == IssueProhibitedPattern {
				found = true
				if r.Dimension != DimensionBestPractices {
					t.Errorf("prohibited pattern reported under %s", r.Dimension)
				}
			}
		}
	}
	if !found {
		t.Error("prohibited pattern not detected")
	}
}

func TestValidateDeterministic(t *testing.T) {
	v := NewValidator()
	ct := contract.Classify("nft collection")
	text := "pub contract T { var x: String = undefined }"

	first := v.Validate(text, ct)
	second := v.Validate(text, ct)
	if len(first) != len(second) {
		t.Fatalf("result count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].Issues) != len(second[i].Issues) {
			t.Errorf("dimension %s issue count differs", first[i].Dimension)
		}
	}
}

func TestFormatFeedback(t *testing.T) {
	results := []*Result{
		newResult(DimensionSyntax, []Issue{
			{Severity: SeverityCritical, Type: IssueBracketMismatch, Message: "unbalanced braces: +1"},
		}),
		newResult(DimensionCompleteness, []Issue{
			{Severity: SeverityWarning, Type: IssueMissingInit, Message: "contract has no init()", SuggestedFix: "add init()"},
		}),
	}

	feedback := FormatFeedback(results)
	if !strings.Contains(feedback, "unbalanced braces") {
		t.Error("feedback missing critical issue")
	}
	if !strings.Contains(feedback, "add init()") {
		t.Error("feedback missing suggested fix")
	}

	if FormatFeedback(nil) != "" {
		t.Error("feedback for clean results should be empty")
	}
}
