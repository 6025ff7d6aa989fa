package contract

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		prompt         string
		wantCategory   Category
		wantComplexity Complexity
	}{
		{
			name:           "nft collection",
			prompt:         "Create an NFT collection with metadata and minting",
			wantCategory:   CategoryNFT,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "fungible token",
			prompt:         "A fungible token with a vault and total supply tracking",
			wantCategory:   CategoryFungibleToken,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "dao governance",
			prompt:         "DAO with proposal creation and quorum-based voting",
			wantCategory:   CategoryDAO,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "marketplace",
			prompt:         "An NFT marketplace with listings and auctions and escrow",
			wantCategory:   CategoryMarketplace,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "defi staking",
			prompt:         "DeFi staking pool with yield farming rewards",
			wantCategory:   CategoryDeFi,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "simple utility",
			prompt:         "A simple on-chain registry helper",
			wantCategory:   CategoryUtility,
			wantComplexity: ComplexitySimple,
		},
		{
			name:           "empty prompt falls back to generic",
			prompt:         "",
			wantCategory:   CategoryGeneric,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "no keywords is generic",
			prompt:         "do the thing",
			wantCategory:   CategoryGeneric,
			wantComplexity: ComplexityIntermediate,
		},
		{
			name:           "advanced marker",
			prompt:         "Production-grade upgradeable NFT contract",
			wantCategory:   CategoryNFT,
			wantComplexity: ComplexityAdvanced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prompt)
			if got.Category != tt.wantCategory {
				t.Errorf("category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Complexity != tt.wantComplexity {
				t.Errorf("complexity = %s, want %s", got.Complexity, tt.wantComplexity)
			}
			if !got.Category.Valid() {
				t.Errorf("classified category %q is not valid", got.Category)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	prompt := "NFT marketplace with token payments and voting"
	first := Classify(prompt)
	for i := 0; i < 10; i++ {
		got := Classify(prompt)
		if got.Category != first.Category {
			t.Fatalf("classification not deterministic: %s vs %s", got.Category, first.Category)
		}
	}
}

func TestExtractFeatures(t *testing.T) {
	ct := Classify("mint and burn NFTs with metadata and royalties, admin controls")
	want := []string{"admin-controls", "burning", "metadata", "minting", "royalties"}
	if len(ct.Features) != len(want) {
		t.Fatalf("features = %v, want %v", ct.Features, want)
	}
	for i, f := range want {
		if ct.Features[i] != f {
			t.Errorf("features[%d] = %s, want %s", i, ct.Features[i], f)
		}
	}
}
