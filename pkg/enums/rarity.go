package enums

import (
	"fmt"
	"strings"
)

// Rarity is the catalog tier of a card.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// validRarities is ordered from most to least frequent.
var validRarities = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
}

// GuaranteedRarities lists the tiers a package can guarantee, in emission order.
var GuaranteedRarities = []Rarity{
	RarityLegendary,
	RarityEpic,
	RarityRare,
}

// Rarities returns every tier from most to least frequent.
func Rarities() []Rarity {
	out := make([]Rarity, len(validRarities))
	copy(out, validRarities)
	return out
}

// String implements fmt.Stringer.
func (r Rarity) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Rarity.
func (r Rarity) IsValid() bool {
	for _, candidate := range validRarities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRarity converts raw input into a Rarity. Matching is case-insensitive.
func ParseRarity(value string) (Rarity, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRarities {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rarity %q", value)
}
