package prompts

import (
	"strings"
	"testing"

	"github.com/mosaicworks/cadenceforge/contract"
)

func TestLevelForAttempt(t *testing.T) {
	tests := []struct {
		attempt int
		want    Level
	}{
		{1, LevelBasic},
		{2, LevelModerate},
		{3, LevelStrict},
		{4, LevelMaximum},
		{7, LevelMaximum},
	}

	for _, tt := range tests {
		if got := LevelForAttempt(tt.attempt); got != tt.want {
			t.Errorf("LevelForAttempt(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestTemperatureMonotonicallyNonIncreasing(t *testing.T) {
	prev := TemperatureForLevel(LevelBasic)
	for _, level := range []Level{LevelModerate, LevelStrict, LevelMaximum} {
		temp := TemperatureForLevel(level)
		if temp > prev {
			t.Errorf("temperature increased from %.2f to %.2f at level %s", prev, temp, level)
		}
		prev = temp
	}
	if TemperatureForLevel(LevelMaximum) > 0.2 {
		t.Errorf("maximum level temperature %.2f exceeds 0.2", TemperatureForLevel(LevelMaximum))
	}
}

func TestLevelsAreAdditive(t *testing.T) {
	ct := contract.Type{Category: contract.CategoryNFT}

	var prompts []string
	for attempt := 1; attempt <= 4; attempt++ {
		e := Enhance("make an NFT", Options{AttemptNumber: attempt, ContractType: ct})
		prompts = append(prompts, e.SystemPrompt)
	}

	// Every constraint present at level N must also be present at N+1.
	for i := 0; i < len(prompts)-1; i++ {
		for _, line := range strings.Split(prompts[i], "\n") {
			if !strings.HasPrefix(line, "- ") {
				continue
			}
			if !strings.Contains(prompts[i+1], line) {
				t.Errorf("constraint %q dropped between attempt %d and %d", line, i+1, i+2)
			}
		}
	}
}

func TestStrictModeSkipsBasic(t *testing.T) {
	e := Enhance("make a token", Options{
		AttemptNumber: 1,
		StrictMode:    true,
		ContractType:  contract.Type{Category: contract.CategoryFungibleToken},
	})
	if e.Level != LevelModerate {
		t.Errorf("strict mode attempt 1 level = %s, want moderate", e.Level)
	}
}

func TestCategoryRequirementInjection(t *testing.T) {
	e := Enhance("make an NFT", Options{
		AttemptNumber: 1,
		ContractType:  contract.Type{Category: contract.CategoryNFT},
	})
	if !strings.Contains(e.SystemPrompt, "NonFungibleToken") {
		t.Error("NFT category requirement missing from system prompt")
	}
}

func TestExperiencePhrasing(t *testing.T) {
	beginner := Enhance("x", Options{
		AttemptNumber: 1,
		ContractType:  contract.Type{Category: contract.CategoryGeneric},
		Experience:    contract.ExperienceBeginner,
	})
	expert := Enhance("x", Options{
		AttemptNumber: 1,
		ContractType:  contract.Type{Category: contract.CategoryGeneric},
		Experience:    contract.ExperienceExpert,
	})
	if beginner.SystemPrompt == expert.SystemPrompt {
		t.Error("experience level did not change prompt phrasing")
	}
}

func TestMustAvoidClauses(t *testing.T) {
	e := Enhance("make an NFT", Options{
		AttemptNumber: 2,
		ContractType:  contract.Type{Category: contract.CategoryNFT},
		PreviousFailures: []FailureAdvice{
			{Type: "undefined-value", Solutions: []string{"initialize every variable"}},
			{Type: "bracket-mismatch", Solutions: []string{"balance all braces"}},
			// Duplicate type must not produce a second clause.
			{Type: "undefined-value", Solutions: []string{"initialize every variable"}},
		},
	})

	if !strings.Contains(e.SystemPrompt, "Must Avoid") {
		t.Fatal("must-avoid section missing")
	}
	if !strings.Contains(e.SystemPrompt, "initialize every variable") {
		t.Error("suggested solution missing from must-avoid clause")
	}
	if strings.Count(e.SystemPrompt, "undefined-value") != 1 {
		t.Errorf("duplicate failure type produced %d clauses, want 1",
			strings.Count(e.SystemPrompt, "undefined-value"))
	}
}

func TestEnhanceIsPure(t *testing.T) {
	opts := Options{
		AttemptNumber: 3,
		ContractType:  contract.Type{Category: contract.CategoryDAO},
		PreviousFailures: []FailureAdvice{
			{Type: "missing-element", Solutions: []string{"add a Proposal resource"}},
		},
	}
	first := Enhance("dao", opts)
	second := Enhance("dao", opts)
	if first != second {
		t.Error("Enhance is not deterministic for identical inputs")
	}
}
