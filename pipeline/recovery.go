package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/mosaicworks/cadenceforge/fallbackgen"
	"github.com/mosaicworks/cadenceforge/prompts"
	"github.com/mosaicworks/cadenceforge/validation"
)

// RecoveryInput is what a strategy gets to work with.
type RecoveryInput struct {
	Request  GenerationRequest
	Context  GenerationContext
	Patterns []FailurePattern
	Attempt  int
	Generate GenerateFunc
}

// Strategy is a priority-ordered recovery plugin. Strategies run after a
// failed attempt, highest priority first, short-circuiting on the first
// one whose output clears the quality threshold.
type Strategy struct {
	Name     string
	Priority int

	// ShouldApply decides whether the strategy is worth trying given the
	// accumulated failure patterns and the attempt number.
	ShouldApply func(patterns []FailurePattern, attempt int) bool

	// Apply produces candidate code. An error means the strategy could
	// not produce a candidate; the orchestrator moves on.
	Apply func(ctx context.Context, in RecoveryInput) (string, error)
}

// sortStrategies orders by descending priority, name as tiebreak so the
// order is deterministic.
func sortStrategies(strategies []Strategy) []Strategy {
	sorted := make([]Strategy, len(strategies))
	copy(sorted, strategies)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// DefaultStrategies returns the built-in recovery strategies.
//
// template-seed: repeated structural gaps mean the generator does not
// know the category's shape, so seed it with the verified template as a
// reference and ask it to adapt.
//
// minimum-temperature: syntax-level failures (unbalanced brackets,
// deprecated tokens) often vanish at the temperature floor.
//
// simplify-prompt: repeated placeholder output suggests the prompt is
// over-constrained; retry with only the essentials.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:     "template-seed",
			Priority: 30,
			ShouldApply: func(patterns []FailurePattern, attempt int) bool {
				return attempt >= 2 && patternFrequency(patterns, validation.IssueMissingElement) >= 2
			},
			Apply: func(ctx context.Context, in RecoveryInput) (string, error) {
				skeleton := fallbackgen.Generate(in.Context.UserPrompt, in.Context.ContractType)
				prompt := fmt.Sprintf(
					"Adapt the following verified %s contract skeleton to this request: %s\n\n"+
						"Keep every declared resource, interface, and function. Output only Cadence code.\n\n%s",
					in.Context.ContractType.Category, in.Context.UserPrompt, skeleton)
				return in.Generate(ctx, prompt, 0.2)
			},
		},
		{
			Name:     "minimum-temperature",
			Priority: 20,
			ShouldApply: func(patterns []FailurePattern, attempt int) bool {
				return patternFrequency(patterns, validation.IssueBracketMismatch) >= 1 ||
					patternFrequency(patterns, validation.IssueLegacySyntax) >= 2
			},
			Apply: func(ctx context.Context, in RecoveryInput) (string, error) {
				enhanced := prompts.Enhance(in.Context.UserPrompt, prompts.Options{
					AttemptNumber:    in.Attempt + 1,
					StrictMode:       true,
					PreviousFailures: adviceFromPatterns(in.Patterns),
					ContractType:     in.Context.ContractType,
					Experience:       in.Context.UserExperience,
				})
				prompt := enhanced.SystemPrompt + "\n\n" + enhanced.UserPrompt
				return in.Generate(ctx, prompt, 0.1)
			},
		},
		{
			Name:     "simplify-prompt",
			Priority: 10,
			ShouldApply: func(patterns []FailurePattern, attempt int) bool {
				return patternFrequency(patterns, validation.IssueUndefinedValue) >= 2
			},
			Apply: func(ctx context.Context, in RecoveryInput) (string, error) {
				prompt := fmt.Sprintf(
					"Write the simplest complete Cadence 1.0 contract for: %s\n"+
						"Every variable must be initialized. Output only code.",
					in.Context.UserPrompt)
				return in.Generate(ctx, prompt, 0.2)
			},
		},
	}
}
