package rewards

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

// Catalog supplies rarity buckets.
type Catalog interface {
	IDsByRarity(ctx context.Context, rarity enums.Rarity) ([]uuid.UUID, error)
}

// DrawObserver is told the rarity of every emitted card.
type DrawObserver interface {
	ObserveDraw(rarity enums.Rarity)
}

// DrawSpec is the part of a package definition the generator needs.
type DrawSpec struct {
	Size       int
	Guarantees map[enums.Rarity]int
}

func SpecFor(def models.PackageDefinition) DrawSpec {
	return DrawSpec{Size: def.Size, Guarantees: def.Guarantees()}
}

func (s DrawSpec) Validate() error {
	if s.Size < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "package size must be at least 1")
	}
	total := 0
	for rarity, count := range s.Guarantees {
		if count < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("guarantee for %s must not be negative", rarity))
		}
		if count > 0 && !isGuaranteeable(rarity) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rarity %s cannot be guaranteed", rarity))
		}
		total += count
	}
	if total > s.Size {
		return pkgerrors.New(pkgerrors.CodeValidation, "guarantees exceed package size").
			WithDetails(map[string]any{"size": s.Size, "guaranteed": total})
	}
	return nil
}

func isGuaranteeable(r enums.Rarity) bool {
	for _, g := range enums.GuaranteedRarities {
		if g == r {
			return true
		}
	}
	return false
}

type Generator struct {
	catalog  Catalog
	weights  RarityWeights
	observer DrawObserver
}

type Option func(*Generator)

func WithObserver(obs DrawObserver) Option {
	return func(g *Generator) { g.observer = obs }
}

func NewGenerator(catalog Catalog, weights RarityWeights, opts ...Option) (*Generator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("rarity weights: %w", err)
	}
	g := &Generator{catalog: catalog, weights: append(RarityWeights(nil), weights...)}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Draw returns exactly spec.Size card ids: guaranteed slots first (legendary,
// epic, rare), then weighted slots, in draw order. Samples are uniform with
// replacement within a rarity. An empty required bucket fails with
// CATALOG_EXHAUSTED; rarities are never downgraded.
func (g *Generator) Draw(ctx context.Context, spec DrawSpec, rng *rand.Rand) ([]uuid.UUID, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	buckets := make(map[enums.Rarity][]uuid.UUID, len(g.weights))
	sample := func(rarity enums.Rarity) (uuid.UUID, error) {
		bucket, ok := buckets[rarity]
		if !ok {
			ids, err := g.catalog.IDsByRarity(ctx, rarity)
			if err != nil {
				return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enumerate catalog")
			}
			buckets[rarity] = ids
			bucket = ids
		}
		if len(bucket) == 0 {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeCatalogExhausted, "no cards available for rarity").
				WithDetails(map[string]any{"rarity": rarity})
		}
		if g.observer != nil {
			g.observer.ObserveDraw(rarity)
		}
		return bucket[rng.Intn(len(bucket))], nil
	}

	out := make([]uuid.UUID, 0, spec.Size)
	guaranteed := 0
	for _, rarity := range enums.GuaranteedRarities {
		count := spec.Guarantees[rarity]
		for i := 0; i < count; i++ {
			id, err := sample(rarity)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		guaranteed += count
	}

	for i := 0; i < spec.Size-guaranteed; i++ {
		id, err := sample(g.weights.Pick(rng.Float64()))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
