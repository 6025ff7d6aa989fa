// Package prompts builds escalating-strictness generation prompts.
// Each retry attempt maps to a discrete enhancement level; every level
// strictly adds constraints to the previous level's instruction set and
// never relaxes the temperature.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaicworks/cadenceforge/contract"
)

// Level is the discrete strictness tier applied to prompt construction.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelModerate Level = "moderate"
	LevelStrict   Level = "strict"
	LevelMaximum  Level = "maximum"
)

// LevelForAttempt maps an attempt number to its enhancement level:
// 1→basic, 2→moderate, 3→strict, ≥4→maximum.
func LevelForAttempt(attempt int) Level {
	switch {
	case attempt <= 1:
		return LevelBasic
	case attempt == 2:
		return LevelModerate
	case attempt == 3:
		return LevelStrict
	default:
		return LevelMaximum
	}
}

// TemperatureForLevel returns the generation temperature for a level.
// The schedule is monotonically non-increasing: later attempts trade
// creativity for determinism.
func TemperatureForLevel(level Level) float64 {
	switch level {
	case LevelBasic:
		return 0.7
	case LevelModerate:
		return 0.5
	case LevelStrict:
		return 0.35
	default:
		return 0.2
	}
}

// FailureAdvice pairs a failure-pattern type with its suggested
// solutions, appended as "must avoid" clauses.
type FailureAdvice struct {
	Type      string
	Solutions []string
}

// Options configures one enhancement.
type Options struct {
	AttemptNumber    int
	StrictMode       bool
	PreviousFailures []FailureAdvice
	ContractType     contract.Type
	Experience       contract.Experience
}

// Enhanced is the prompt/temperature pair produced for one attempt.
type Enhanced struct {
	SystemPrompt string
	UserPrompt   string
	Level        Level
	Temperature  float64
}

// levelConstraints holds the instruction set added at each tier. A
// higher tier includes every lower tier's constraints.
var levelConstraints = map[Level][]string{
	LevelBasic: {
		"Output ONLY Cadence code, no prose or markdown fences.",
		"Use Cadence 1.0 syntax: access(all), access(self), view functions.",
		"Every declared variable must be initialized with a concrete value.",
	},
	LevelModerate: {
		"Never emit the word 'undefined' or leave an assignment incomplete.",
		"Every function must have a complete, non-empty body.",
		"All braces, brackets, and parentheses must balance.",
	},
	LevelStrict: {
		"Include an init() block that initializes all contract state.",
		"Do not use deprecated syntax: no pub, priv, pub(set), AuthAccount.",
		"Emit events for all state-changing operations.",
	},
	LevelMaximum: {
		"Double-check the entire output compiles under Cadence 1.0 before responding.",
		"Prefer the simplest structure that satisfies the requirements; omit speculative features.",
		"If any requirement is ambiguous, choose the most conservative interpretation.",
	},
}

var levelOrder = []Level{LevelBasic, LevelModerate, LevelStrict, LevelMaximum}

// categoryRequirements injects category-specific requirement text.
var categoryRequirements = map[contract.Category]string{
	contract.CategoryNFT:           "Implement the NonFungibleToken standard: an NFT resource, a Collection resource, createEmptyCollection, and MetadataViews support.",
	contract.CategoryFungibleToken: "Implement the FungibleToken standard: a Vault resource, totalSupply tracking, createEmptyVault, and deposit/withdraw events.",
	contract.CategoryDAO:           "Implement governance primitives: a Proposal resource, createProposal and vote functions, and quorum accounting.",
	contract.CategoryMarketplace:   "Implement marketplace primitives: a Listing resource, createListing and purchase functions, and sale completion events.",
	contract.CategoryDeFi:          "Implement pool primitives: a Pool resource with deposit and withdraw functions and balance accounting.",
	contract.CategoryUtility:       "Keep the contract focused: a single clear responsibility with explicit access control.",
	contract.CategoryGeneric:       "Produce a well-formed contract with an init() block and explicit access control on every declaration.",
}

// experiencePhrasing tunes the register of the instructions.
var experiencePhrasing = map[contract.Experience]string{
	contract.ExperienceBeginner:     "Add short comments explaining each section so a newcomer can follow the structure.",
	contract.ExperienceIntermediate: "Comment non-obvious decisions only.",
	contract.ExperienceExpert:       "No explanatory comments; idiomatic, production-style code only.",
}

// Enhance builds the prompt/temperature pair for one attempt. It is a
// pure function of its inputs.
func Enhance(basePrompt string, opts Options) Enhanced {
	level := LevelForAttempt(opts.AttemptNumber)
	if opts.StrictMode && level == LevelBasic {
		// Strict mode skips the lenient first tier.
		level = LevelModerate
	}

	var sys strings.Builder
	sys.WriteString("You are an expert Cadence smart contract developer for the Flow blockchain.\n\n")
	sys.WriteString("## Requirements\n\n")
	if req, ok := categoryRequirements[opts.ContractType.Category]; ok {
		sys.WriteString(req)
		sys.WriteString("\n\n")
	}
	if len(opts.ContractType.Features) > 0 {
		sys.WriteString(fmt.Sprintf("Requested features: %s.\n\n", strings.Join(opts.ContractType.Features, ", ")))
	}

	sys.WriteString("## Rules\n\n")
	for _, l := range levelOrder {
		for _, c := range levelConstraints[l] {
			sys.WriteString(fmt.Sprintf("- %s\n", c))
		}
		if l == level {
			break
		}
	}
	sys.WriteString("\n")

	if phrasing, ok := experiencePhrasing[opts.Experience]; ok {
		sys.WriteString(phrasing)
		sys.WriteString("\n")
	}

	if len(opts.PreviousFailures) > 0 {
		sys.WriteString("\n## Must Avoid\n\n")
		sys.WriteString("Previous attempts failed. You MUST avoid repeating these failures:\n\n")
		for _, advice := range sortedAdvice(opts.PreviousFailures) {
			sys.WriteString(fmt.Sprintf("- %s", advice.Type))
			if len(advice.Solutions) > 0 {
				sys.WriteString(fmt.Sprintf(": %s", strings.Join(advice.Solutions, "; ")))
			}
			sys.WriteString("\n")
		}
	}

	return Enhanced{
		SystemPrompt: sys.String(),
		UserPrompt:   basePrompt,
		Level:        level,
		Temperature:  TemperatureForLevel(level),
	}
}

// sortedAdvice deduplicates advice by type, keeping one clause per
// distinct failure-pattern type in stable order.
func sortedAdvice(advice []FailureAdvice) []FailureAdvice {
	byType := make(map[string]FailureAdvice)
	for _, a := range advice {
		if _, ok := byType[a.Type]; !ok {
			byType[a.Type] = a
		}
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]FailureAdvice, 0, len(types))
	for _, t := range types {
		out = append(out, byType[t])
	}
	return out
}
