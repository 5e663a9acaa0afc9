package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

const (
	DefaultSearchLimit = 7
	MaxSearchLimit     = 50
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// IDsByRarity enumerates one rarity bucket.
func (s *Service) IDsByRarity(ctx context.Context, rarity enums.Rarity) ([]uuid.UUID, error) {
	if !rarity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rarity")
	}
	ids, err := s.repo.IDsByRarity(ctx, rarity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cards by rarity")
	}
	return ids, nil
}

// Lookup resolves ids to cards. Unknown ids are reported as NOT_FOUND.
func (s *Service) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Card, error) {
	cards, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cards")
	}
	out := make(map[uuid.UUID]models.Card, len(cards))
	for _, card := range cards {
		out[card.ID] = card
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found").
				WithDetails(map[string]any{"card_id": id})
		}
	}
	return out, nil
}

// Get returns one card or NOT_FOUND.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	byID, err := s.Lookup(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	card := byID[id]
	return &card, nil
}

// Ordered resolves ids to cards keeping the input order and duplicates.
func (s *Service) Ordered(ctx context.Context, ids []uuid.UUID) ([]models.Card, error) {
	byID, err := s.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

// Search matches card names case-insensitively.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]models.Card, error) {
	cards, err := s.repo.Search(ctx, term, clampLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search cards")
	}
	return cards, nil
}

// SearchExcluding is Search without the given ids.
func (s *Service) SearchExcluding(ctx context.Context, term string, exclude []uuid.UUID, limit int) ([]models.Card, error) {
	cards, err := s.repo.SearchExcluding(ctx, term, exclude, clampLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search cards")
	}
	return cards, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
