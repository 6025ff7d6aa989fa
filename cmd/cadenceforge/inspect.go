package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/fallbackgen"
	"github.com/mosaicworks/cadenceforge/quality"
	"github.com/mosaicworks/cadenceforge/validation"
)

func newValidateCmd(logLevel *string) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Run shallow validation on a Cadence contract file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger("info", "text", *logLevel)

			code, ct, err := readContract(args[0], category)
			if err != nil {
				return err
			}

			validator := &validation.Validator{}
			results := validator.Validate(code, ct)

			issueCount := 0
			for _, r := range results {
				for _, issue := range r.Issues {
					issueCount++
					loc := ""
					if issue.Location.Line > 0 {
						loc = fmt.Sprintf(" (line %d)", issue.Location.Line)
					}
					fmt.Printf("[%s] %s: %s%s\n", issue.Severity, r.Dimension, issue.Message, loc)
					if issue.SuggestedFix != "" {
						fmt.Printf("    fix: %s\n", issue.SuggestedFix)
					}
				}
			}

			if validation.AllPassed(results) {
				fmt.Printf("PASS (%d non-critical issue(s))\n", issueCount)
				return nil
			}
			fmt.Printf("FAIL (%d issue(s))\n", issueCount)
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Contract category (default: classified from content)")
	return cmd
}

func newScoreCmd(logLevel *string) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "score <file>",
		Short: "Score a Cadence contract across quality dimensions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger("info", "text", *logLevel)

			code, ct, err := readContract(args[0], category)
			if err != nil {
				return err
			}

			validator := &validation.Validator{}
			results := validator.Validate(code, ct)
			score := quality.Calculate(results, ct, quality.DefaultWeights())

			fmt.Printf("category:        %s\n", ct.Category)
			fmt.Printf("overall:         %.1f\n", score.Overall)
			fmt.Printf("syntax:          %.1f\n", score.Syntax)
			fmt.Printf("logic:           %.1f\n", score.Logic)
			fmt.Printf("completeness:    %.1f\n", score.Completeness)
			fmt.Printf("best practices:  %.1f\n", score.BestPractices)
			fmt.Printf("readiness:       %.1f\n", score.ProductionReadiness)
			fmt.Printf("production-ready: %v\n", quality.IsProductionReady(score))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Contract category (default: classified from content)")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <prompt>",
		Short: "Classify a prompt into a contract category",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ct := contract.Classify(strings.Join(args, " "))
			fmt.Printf("category:   %s\n", ct.Category)
			fmt.Printf("complexity: %s\n", ct.Complexity)
			if len(ct.Features) > 0 {
				fmt.Printf("features:   %s\n", strings.Join(ct.Features, ", "))
			}
		},
	}
}

func newFallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fallback <prompt>",
		Short: "Print the deterministic template contract for a prompt",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			prompt := strings.Join(args, " ")
			fmt.Println(fallbackgen.Generate(prompt, contract.Classify(prompt)))
		},
	}
}

// readContract loads a contract file and resolves its category, either
// from the flag or by classifying the file content.
func readContract(path, category string) (string, contract.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", contract.Type{}, fmt.Errorf("read contract: %w", err)
	}
	code := string(data)

	if category != "" {
		ct := contract.Type{Category: contract.Category(category)}
		if !ct.Category.Valid() {
			return "", contract.Type{}, fmt.Errorf("unknown category %q (valid: %v)",
				category, contract.Categories())
		}
		return code, ct, nil
	}
	return code, contract.Classify(code), nil
}
