package validation

import (
	"fmt"
	"strings"

	"github.com/mosaicworks/cadenceforge/contract"
)

// elementRequirement is one entry in a category checklist. Load-bearing
// elements (a required base interface, the resource that holds value) are
// critical when missing; advisory elements are warnings.
type elementRequirement struct {
	element     string
	description string
	loadBearing bool
}

// structuralChecklists maps each contract category to the interface,
// resource, and function names its generated code is expected to carry.
// Lookup is by exact category tag so the supported set stays closed.
var structuralChecklists = map[contract.Category][]elementRequirement{
	contract.CategoryNFT: {
		{"NonFungibleToken", "NonFungibleToken standard conformance", true},
		{"resource NFT", "NFT resource declaration", true},
		{"resource Collection", "Collection resource for holding NFTs", true},
		{"createEmptyCollection", "empty collection factory function", true},
		{"MetadataViews", "metadata views support", false},
		{"event Deposit", "Deposit event", false},
		{"event Withdraw", "Withdraw event", false},
	},
	contract.CategoryFungibleToken: {
		{"FungibleToken", "FungibleToken standard conformance", true},
		{"resource Vault", "Vault resource holding the balance", true},
		{"totalSupply", "total supply tracking", true},
		{"createEmptyVault", "empty vault factory function", true},
		{"event TokensDeposited", "deposit event", false},
		{"event TokensWithdrawn", "withdraw event", false},
	},
	contract.CategoryDAO: {
		{"resource Proposal", "Proposal resource or struct", true},
		{"fun vote", "vote casting function", true},
		{"fun createProposal", "proposal creation function", true},
		{"quorum", "quorum handling", false},
		{"event ProposalCreated", "proposal event", false},
	},
	contract.CategoryMarketplace: {
		{"resource Listing", "Listing resource", true},
		{"fun purchase", "purchase function", true},
		{"fun createListing", "listing creation function", true},
		{"event ListingCompleted", "sale completion event", false},
		{"royalt", "royalty handling", false},
	},
	contract.CategoryDeFi: {
		{"resource Pool", "liquidity pool resource", true},
		{"fun deposit", "deposit function", true},
		{"fun withdraw", "withdraw function", true},
		{"fun swap", "swap function", false},
		{"event Deposit", "deposit event", false},
	},
	contract.CategoryUtility: {
		{"contract ", "contract declaration", true},
		{"access(all)", "explicit access control", false},
	},
	contract.CategoryGeneric: {
		{"contract ", "contract declaration", true},
		{"init", "initializer", false},
	},
}

// CheckStructure diffs the category checklist against the candidate
// text; each missing element becomes a critical or warning issue
// depending on whether it is load-bearing. The result is tagged as the
// logic dimension: structural conformance is the closest thing the
// shallow pipeline has to semantic validation.
func CheckStructure(text string, ct contract.Type) *Result {
	var issues []Issue

	checklist := structuralChecklists[ct.Category]
	for _, req := range checklist {
		if strings.Contains(text, req.element) {
			continue
		}
		sev := SeverityWarning
		if req.loadBearing {
			sev = SeverityCritical
		}
		issues = append(issues, Issue{
			Severity:     sev,
			Type:         IssueMissingElement,
			Message:      fmt.Sprintf("missing %s (%q)", req.description, req.element),
			SuggestedFix: fmt.Sprintf("add %s", req.description),
			AutoFixable:  false,
		})
	}

	return newResult(DimensionLogic, issues)
}

// RequiredElements returns the load-bearing element names for a category.
// The fallback generator uses this to guarantee its templates pass the
// structural check.
func RequiredElements(cat contract.Category) []string {
	var elements []string
	for _, req := range structuralChecklists[cat] {
		if req.loadBearing {
			elements = append(elements, req.element)
		}
	}
	return elements
}
