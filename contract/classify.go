package contract

import (
	"sort"
	"strings"
)

// categoryKeywords maps each category to the prompt keywords that vote
// for it. Scoring is a simple weighted keyword count; ties and empty
// prompts fall through to generic.
var categoryKeywords = map[Category][]weightedKeyword{
	CategoryNFT: {
		{"nft", 3}, {"non-fungible", 3}, {"collectible", 2},
		{"collection", 1}, {"mint", 1}, {"metadata", 1}, {"royalt", 1},
	},
	CategoryFungibleToken: {
		{"fungible token", 3}, {"token", 2}, {"coin", 2},
		{"currency", 2}, {"vault", 1}, {"supply", 1}, {"transfer", 1},
	},
	CategoryDAO: {
		{"dao", 3}, {"governance", 3}, {"proposal", 2},
		{"voting", 2}, {"vote", 2}, {"quorum", 2}, {"member", 1},
	},
	CategoryMarketplace: {
		{"marketplace", 3}, {"listing", 2}, {"auction", 2},
		{"sale", 2}, {"storefront", 2}, {"escrow", 1}, {"buy", 1}, {"sell", 1},
	},
	CategoryDeFi: {
		{"defi", 3}, {"swap", 2}, {"liquidity", 2}, {"staking", 2},
		{"stake", 2}, {"lending", 2}, {"yield", 2}, {"pool", 1}, {"farm", 1},
	},
	CategoryUtility: {
		{"utility", 3}, {"registry", 2}, {"oracle", 2},
		{"storage", 1}, {"helper", 2}, {"library", 1},
	},
}

type weightedKeyword struct {
	word   string
	weight int
}

// featureKeywords maps prompt keywords to feature names recorded on the
// classified type. Features feed prompt enhancement, not scoring.
var featureKeywords = map[string]string{
	"mint":      "minting",
	"burn":      "burning",
	"metadata":  "metadata",
	"royalt":    "royalties",
	"admin":     "admin-controls",
	"pause":     "pausable",
	"upgrad":    "upgradeable",
	"event":     "events",
	"multi-sig": "multi-signature",
}

// advancedMarkers and the prompt length heuristic decide complexity.
var advancedMarkers = []string{
	"advanced", "complex", "production", "upgradeable", "multi-sig",
	"cross-contract", "composable",
}

var simpleMarkers = []string{"simple", "basic", "minimal", "example", "demo"}

// Classify derives a contract Type from a natural-language prompt by
// keyword scoring. It is deterministic and total: any prompt, including
// an empty one, yields a valid Type.
func Classify(prompt string) Type {
	lower := strings.ToLower(prompt)

	best := CategoryGeneric
	bestScore := 0
	// Iterate categories in stable order so ties resolve deterministically.
	for _, cat := range Categories() {
		kws, ok := categoryKeywords[cat]
		if !ok {
			continue
		}
		score := 0
		for _, kw := range kws {
			if strings.Contains(lower, kw.word) {
				score += kw.weight
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}

	return Type{
		Category:   best,
		Complexity: classifyComplexity(lower),
		Features:   extractFeatures(lower),
	}
}

func classifyComplexity(lower string) Complexity {
	for _, m := range advancedMarkers {
		if strings.Contains(lower, m) {
			return ComplexityAdvanced
		}
	}
	for _, m := range simpleMarkers {
		if strings.Contains(lower, m) {
			return ComplexitySimple
		}
	}
	return ComplexityIntermediate
}

func extractFeatures(lower string) []string {
	seen := make(map[string]bool)
	for kw, feature := range featureKeywords {
		if strings.Contains(lower, kw) {
			seen[feature] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	features := make([]string, 0, len(seen))
	for f := range seen {
		features = append(features, f)
	}
	sort.Strings(features)
	return features
}
