package rewards

import (
	"fmt"
	"math"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

type RarityWeight struct {
	Rarity enums.Rarity
	Weight float64
}

// RarityWeights is walked in order when sampling, so order is part of the contract.
type RarityWeights []RarityWeight

const weightTolerance = 1e-9

func DefaultRarityWeights() RarityWeights {
	return RarityWeights{
		{Rarity: enums.RarityCommon, Weight: 0.60},
		{Rarity: enums.RarityUncommon, Weight: 0.25},
		{Rarity: enums.RarityRare, Weight: 0.10},
		{Rarity: enums.RarityEpic, Weight: 0.04},
		{Rarity: enums.RarityLegendary, Weight: 0.01},
	}
}

func (w RarityWeights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("rarity weights are empty")
	}
	seen := make(map[enums.Rarity]struct{}, len(w))
	total := 0.0
	for _, entry := range w {
		if !entry.Rarity.IsValid() {
			return fmt.Errorf("invalid rarity %q", entry.Rarity)
		}
		if _, dup := seen[entry.Rarity]; dup {
			return fmt.Errorf("rarity %q listed twice", entry.Rarity)
		}
		seen[entry.Rarity] = struct{}{}
		if entry.Weight < 0 || math.IsNaN(entry.Weight) {
			return fmt.Errorf("rarity %q has negative weight", entry.Rarity)
		}
		total += entry.Weight
	}
	if math.Abs(total-1) > weightTolerance {
		return fmt.Errorf("rarity weights sum to %v, want 1", total)
	}
	return nil
}

// Pick returns the first rarity whose cumulative weight exceeds r, r in [0,1).
// Floating residue past the final bucket lands on the last entry.
func (w RarityWeights) Pick(r float64) enums.Rarity {
	cumulative := 0.0
	for _, entry := range w {
		cumulative += entry.Weight
		if r < cumulative {
			return entry.Rarity
		}
	}
	return w[len(w)-1].Rarity
}
