package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

var ErrNotFound = errors.New("account not found")

// AlbumEntry is one owned card with its quantity.
type AlbumEntry struct {
	models.Card
	Quantity int `json:"quantity" gorm:"column:quantity"`
}

type albumFilter struct {
	accountID uuid.UUID
	search    string
	rarity    enums.Rarity
	order     QuantityOrder
	offset    int
	limit     int
}

type inventoryTotals struct {
	TotalCards    int64 `gorm:"column:total_cards"`
	DistinctCards int64 `gorm:"column:distinct_cards"`
}

type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	Album(ctx context.Context, filter albumFilter) ([]AlbumEntry, int64, error)
	InventoryTotals(ctx context.Context, accountID uuid.UUID) (inventoryTotals, error)
	CountPendingTrades(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *repository) albumScope(ctx context.Context, filter albumFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Table("account_cards").
		Joins("JOIN cards ON cards.id = account_cards.card_id").
		Where("account_cards.account_id = ? AND account_cards.quantity > 0", filter.accountID)
	if term := strings.TrimSpace(filter.search); term != "" {
		query = query.Where("LOWER(cards.name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if filter.rarity != "" {
		query = query.Where("cards.rarity = ?", filter.rarity)
	}
	return query
}

// Album returns one page of owned cards and the unpaged total.
func (r *repository) Album(ctx context.Context, filter albumFilter) ([]AlbumEntry, int64, error) {
	var total int64
	if err := r.albumScope(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.albumScope(ctx, filter).Select("cards.*, account_cards.quantity AS quantity")
	switch filter.order {
	case QuantityAsc:
		query = query.Order("account_cards.quantity ASC")
	case QuantityDesc:
		query = query.Order("account_cards.quantity DESC")
	}
	var entries []AlbumEntry
	err := query.Order("cards.name ASC").Order("cards.id ASC").
		Offset(filter.offset).
		Limit(filter.limit).
		Scan(&entries).Error
	return entries, total, err
}

func (r *repository) InventoryTotals(ctx context.Context, accountID uuid.UUID) (inventoryTotals, error) {
	var totals inventoryTotals
	err := r.db.WithContext(ctx).Model(&models.AccountCard{}).
		Select("COALESCE(SUM(quantity), 0) AS total_cards, COUNT(*) AS distinct_cards").
		Where("account_id = ? AND quantity > 0", accountID).
		Scan(&totals).Error
	return totals, err
}

func (r *repository) CountPendingTrades(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Trade{}).
		Where("proposer_id = ? AND status = ?", accountID, enums.TradeStatusPending).
		Count(&count).Error
	return count, err
}
