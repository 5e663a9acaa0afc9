package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// Repository reads the card catalog. Nothing in the economy writes to it.
type Repository interface {
	IDsByRarity(ctx context.Context, rarity enums.Rarity) ([]uuid.UUID, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Card, error)
	Search(ctx context.Context, term string, limit int) ([]models.Card, error)
	SearchExcluding(ctx context.Context, term string, exclude []uuid.UUID, limit int) ([]models.Card, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IDsByRarity(ctx context.Context, rarity enums.Rarity) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("rarity = ?", rarity).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Card, error) {
	if len(ids) == 0 {
		return []models.Card{}, nil
	}
	var cards []models.Card
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repository) Search(ctx context.Context, term string, limit int) ([]models.Card, error) {
	return r.SearchExcluding(ctx, term, nil, limit)
}

func (r *repository) SearchExcluding(ctx context.Context, term string, exclude []uuid.UUID, limit int) ([]models.Card, error) {
	query := r.db.WithContext(ctx).Model(&models.Card{})
	if term = strings.TrimSpace(term); term != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var cards []models.Card
	if err := query.Order("name ASC").Limit(limit).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}
