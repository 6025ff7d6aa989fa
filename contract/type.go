// Package contract classifies generation prompts into contract types.
// The category drives quality-scoring penalties, prompt requirements,
// and fallback template selection.
package contract

// Category identifies the kind of contract being generated.
// The set is closed: scoring and templating switch exhaustively on it.
type Category string

const (
	CategoryNFT           Category = "nft"
	CategoryFungibleToken Category = "fungible-token"
	CategoryDAO           Category = "dao"
	CategoryMarketplace   Category = "marketplace"
	CategoryDeFi          Category = "defi"
	CategoryUtility       Category = "utility"
	CategoryGeneric       Category = "generic"
)

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryNFT,
		CategoryFungibleToken,
		CategoryDAO,
		CategoryMarketplace,
		CategoryDeFi,
		CategoryUtility,
		CategoryGeneric,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNFT, CategoryFungibleToken, CategoryDAO,
		CategoryMarketplace, CategoryDeFi, CategoryUtility, CategoryGeneric:
		return true
	}
	return false
}

// Complexity indicates how involved the requested contract is.
type Complexity string

const (
	ComplexitySimple       Complexity = "simple"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// Type describes the classified target artifact.
type Type struct {
	Category   Category   `json:"category"`
	Complexity Complexity `json:"complexity"`
	Features   []string   `json:"features,omitempty"`
}

// Experience describes the caller's familiarity with Cadence.
// It only affects prompt phrasing, never validation or scoring.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceExpert       Experience = "expert"
)
