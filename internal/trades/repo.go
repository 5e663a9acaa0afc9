package trades

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/pagination"
)

var ErrNotFound = errors.New("trade not found")

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trade *models.Trade) error
	Find(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	Finalize(ctx context.Context, id uuid.UUID, to enums.TradeStatus, acceptorID *uuid.UUID, at time.Time) (bool, error)
	ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Trade, error)
	ListPendingByProposer(ctx context.Context, proposerID uuid.UUID) ([]models.Trade, error)
	OwnedCards(ctx context.Context, accountID uuid.UUID, term string, limit int) ([]models.Card, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// Finalize moves a pending trade to a terminal status. It is a
// compare-and-set on status: false means the trade was no longer pending.
func (r *repository) Finalize(ctx context.Context, id uuid.UUID, to enums.TradeStatus, acceptorID *uuid.UUID, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       to,
		"finalized_at": at,
		"updated_at":   at,
	}
	if acceptorID != nil {
		updates["acceptor_id"] = *acceptorID
	}
	res := r.db.WithContext(ctx).Model(&models.Trade{}).
		Where("id = ? AND status = ?", id, enums.TradeStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListPending pages newest first; cursor is the last row of the previous page.
func (r *repository) ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Trade, error) {
	query := r.db.WithContext(ctx).Where("status = ?", enums.TradeStatusPending)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Trade
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListPendingByProposer(ctx context.Context, proposerID uuid.UUID) ([]models.Trade, error) {
	var rows []models.Trade
	err := r.db.WithContext(ctx).
		Where("proposer_id = ? AND status = ?", proposerID, enums.TradeStatusPending).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// OwnedCards lists catalog cards the account holds at least one copy of.
func (r *repository) OwnedCards(ctx context.Context, accountID uuid.UUID, term string, limit int) ([]models.Card, error) {
	query := r.db.WithContext(ctx).Model(&models.Card{}).
		Joins("JOIN account_cards ON account_cards.card_id = cards.id").
		Where("account_cards.account_id = ? AND account_cards.quantity > 0", accountID)
	if term = strings.TrimSpace(term); term != "" {
		query = query.Where("LOWER(cards.name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	var cards []models.Card
	err := query.Order("cards.name ASC").Limit(limit).Find(&cards).Error
	return cards, err
}
