package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

// Store persists Holdings. Save is a compare-and-set on accounts.version
// followed by the journaled inventory rows, all on the caller's transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	if tx == nil {
		return s
	}
	return &Store{db: tx}
}

// Load reads the account row and its inventory.
func (s *Store) Load(ctx context.Context, accountID uuid.UUID) (*Holdings, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	var rows []models.AccountCard
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}

	inventory := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		inventory[row.CardID] = row.Quantity
	}

	h := NewHoldings(account.ID, account.Balance, inventory, account.Version)
	h.Role = account.Role
	return h, nil
}

// Create inserts a new account with the given opening balance.
func (s *Store) Create(ctx context.Context, accountID uuid.UUID, role enums.AccountRole, opening decimal.Decimal) (*models.Account, error) {
	account := &models.Account{ID: accountID, Role: role, Balance: decimal.Zero}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	if opening.IsPositive() {
		h := NewHoldings(account.ID, account.Balance, nil, account.Version)
		if err := h.ApplyCreditDelta(opening, enums.CreditEventStartingGrant, uuid.Nil); err != nil {
			return nil, err
		}
		if err := s.Save(ctx, h); err != nil {
			return nil, err
		}
		account.Balance = h.Balance
		account.Version = h.Version
	}
	return account, nil
}

// Save writes the journaled changes. A concurrent writer that bumped the
// version first yields db.ErrStaleWrite.
func (s *Store) Save(ctx context.Context, h *Holdings) error {
	if !h.Dirty() {
		return nil
	}
	conn := s.db.WithContext(ctx)

	res := conn.Model(&models.Account{}).
		Where("id = ? AND version = ?", h.AccountID, h.Version).
		Updates(map[string]any{
			"balance": h.Balance,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update account")
	}
	if res.RowsAffected == 0 {
		return db.ErrStaleWrite
	}

	now := time.Now().UTC()
	for cardID := range h.touchedCards {
		qty := h.Inventory[cardID]
		if qty == 0 {
			if err := conn.Where("account_id = ? AND card_id = ?", h.AccountID, cardID).
				Delete(&models.AccountCard{}).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory entry")
			}
			continue
		}
		row := models.AccountCard{AccountID: h.AccountID, CardID: cardID, Quantity: qty, UpdatedAt: now}
		if err := conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "card_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert inventory entry")
		}
	}

	for _, entry := range h.creditEntries {
		event := models.CreditLedgerEvent{
			AccountID:    h.AccountID,
			Type:         entry.Type,
			Amount:       entry.Amount,
			BalanceAfter: entry.BalanceAfter,
			ReferenceID:  entry.ReferenceID,
		}
		if err := conn.Create(&event).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit event")
		}
	}

	h.Version++
	h.resetJournal()
	return nil
}

// ListCreditEvents returns the newest balance changes first.
func (s *Store) ListCreditEvents(ctx context.Context, accountID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.CreditLedgerEvent
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
