// Package quality computes multi-dimensional quality scores for generated
// contract code from validation results. Scoring is a pure function: the
// same results always yield the same score, and nothing is persisted.
package quality

import (
	"fmt"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/validation"
)

// Score holds per-dimension scores and the weighted overall, all in [0,100].
type Score struct {
	Overall             float64 `json:"overall"`
	Syntax              float64 `json:"syntax"`
	Logic               float64 `json:"logic"`
	Completeness        float64 `json:"completeness"`
	BestPractices       float64 `json:"best_practices"`
	ProductionReadiness float64 `json:"production_readiness"`
}

// Weights configures the contribution of each dimension to the overall
// score. Weights must sum to 1.0.
type Weights struct {
	Syntax              float64 `yaml:"syntax" json:"syntax"`
	Logic               float64 `yaml:"logic" json:"logic"`
	Completeness        float64 `yaml:"completeness" json:"completeness"`
	BestPractices       float64 `yaml:"best_practices" json:"best_practices"`
	ProductionReadiness float64 `yaml:"production_readiness" json:"production_readiness"`
}

// DefaultWeights returns the standard dimension weighting.
func DefaultWeights() Weights {
	return Weights{
		Syntax:              0.25,
		Logic:               0.25,
		Completeness:        0.25,
		BestPractices:       0.15,
		ProductionReadiness: 0.10,
	}
}

// Validate checks that the weights sum to 1.0 within a small tolerance.
func (w Weights) Validate() error {
	sum := w.Syntax + w.Logic + w.Completeness + w.BestPractices + w.ProductionReadiness
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

const (
	// unscoredDefault is the per-dimension score when no validation of
	// that dimension was performed, so unscored dimensions neither reward
	// nor heavily penalize.
	unscoredDefault = 50

	// dimensionMinimum gates production readiness: if syntax, logic, or
	// completeness falls below it, production readiness is zero.
	dimensionMinimum = 60

	// Production readiness step thresholds over the mean of the four
	// non-gating dimensions.
	readinessGood      = 75
	readinessExcellent = 90

	// criticalUnfixablePenalty is subtracted from production readiness
	// per unresolved, non-auto-fixable critical issue.
	criticalUnfixablePenalty = 30

	// ProductionReadyThreshold is the default bar for IsProductionReady.
	ProductionReadyThreshold = 85
)

// severityPenalty tables, keyed by dimension class.
var (
	syntaxClassPenalty = map[validation.Severity]float64{
		validation.SeverityCritical: 25,
		validation.SeverityWarning:  10,
		validation.SeverityInfo:     2,
	}
	bestPracticesPenalty = map[validation.Severity]float64{
		validation.SeverityCritical: 15,
		validation.SeverityWarning:  8,
		validation.SeverityInfo:     3,
	}
)

// categoryLogicDeductions applies extra logic-dimension deductions for
// category-specific missing elements, beyond the generic critical
// penalty. Keyed by the closed category set.
var categoryLogicDeductions = map[contract.Category]float64{
	contract.CategoryNFT:           10,
	contract.CategoryFungibleToken: 10,
	contract.CategoryDAO:           8,
	contract.CategoryMarketplace:   8,
	contract.CategoryDeFi:          10,
	contract.CategoryUtility:       3,
	contract.CategoryGeneric:       0,
}

// Calculate derives a Score from validation results. Dimensions that were
// not validated default to 50. Validated dimensions start at 100 (or the
// supplied raw score) and lose fixed penalties per issue by severity, with
// clamping to [0,100] applied after summing.
func Calculate(results []*validation.Result, ct contract.Type, weights Weights) Score {
	if err := weights.Validate(); err != nil {
		weights = DefaultWeights()
	}

	score := Score{
		Syntax:        unscoredDefault,
		Logic:         unscoredDefault,
		Completeness:  unscoredDefault,
		BestPractices: unscoredDefault,
	}

	seen := map[validation.Dimension]bool{}
	for _, r := range results {
		dim := scoreDimension(r, ct)
		// Multiple results in the same dimension combine by taking the
		// lower score: a dimension is only as good as its worst check.
		switch r.Dimension {
		case validation.DimensionSyntax:
			score.Syntax = mergeDimension(score.Syntax, dim, seen[r.Dimension])
		case validation.DimensionLogic:
			score.Logic = mergeDimension(score.Logic, dim, seen[r.Dimension])
		case validation.DimensionCompleteness:
			score.Completeness = mergeDimension(score.Completeness, dim, seen[r.Dimension])
		case validation.DimensionBestPractices:
			score.BestPractices = mergeDimension(score.BestPractices, dim, seen[r.Dimension])
		}
		seen[r.Dimension] = true
	}

	score.ProductionReadiness = productionReadiness(score, results)

	score.Overall = clamp(score.Syntax*weights.Syntax +
		score.Logic*weights.Logic +
		score.Completeness*weights.Completeness +
		score.BestPractices*weights.BestPractices +
		score.ProductionReadiness*weights.ProductionReadiness)

	return score
}

// scoreDimension computes the clamped score for one validation result.
func scoreDimension(r *validation.Result, ct contract.Type) float64 {
	base := 100.0
	if r.Score != nil {
		base = *r.Score
	}

	penalties := syntaxClassPenalty
	if r.Dimension == validation.DimensionBestPractices {
		penalties = bestPracticesPenalty
	}

	for _, issue := range r.Issues {
		base -= penalties[issue.Severity]
		// Logic-dimension structural gaps carry a category-specific
		// deduction on top of the generic penalty.
		if r.Dimension == validation.DimensionLogic &&
			issue.Type == validation.IssueMissingElement &&
			issue.Severity == validation.SeverityCritical {
			base -= categoryLogicDeductions[ct.Category]
		}
	}

	return clamp(base)
}

func mergeDimension(current, candidate float64, dimensionSeen bool) float64 {
	if !dimensionSeen {
		return candidate
	}
	if candidate < current {
		return candidate
	}
	return current
}

// productionReadiness is a gate, not an average: zero whenever any of
// syntax, logic, or completeness falls below the minimum, otherwise a
// step function of the mean of the four non-gating dimensions, reduced
// per unresolved non-auto-fixable critical issue.
func productionReadiness(s Score, results []*validation.Result) float64 {
	if s.Syntax < dimensionMinimum || s.Logic < dimensionMinimum || s.Completeness < dimensionMinimum {
		return 0
	}

	mean := (s.Syntax + s.Logic + s.Completeness + s.BestPractices) / 4

	var readiness float64
	switch {
	case mean >= readinessExcellent:
		readiness = 100
	case mean >= readinessGood:
		readiness = 85
	case mean >= dimensionMinimum:
		readiness = 70
	default:
		readiness = 40
	}

	for _, r := range results {
		for _, issue := range r.Issues {
			if issue.Severity == validation.SeverityCritical && !issue.AutoFixable {
				readiness -= criticalUnfixablePenalty
			}
		}
	}

	return clamp(readiness)
}

// MeetsThreshold reports whether the overall score meets the bar.
func MeetsThreshold(s Score, threshold float64) bool {
	return s.Overall >= threshold
}

// IsProductionReady reports whether the artifact clears the production
// readiness gate.
func IsProductionReady(s Score) bool {
	return s.ProductionReadiness >= ProductionReadyThreshold
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
