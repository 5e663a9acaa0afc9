package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/internal/ledger"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/herovault-backend/pkg/pagination"
)

type unitOfWork interface {
	Do(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo            Repository
	Holdings        *ledger.Store
	UnitOfWork      unitOfWork
	Outbox          outboxEmitter
	Logger          *logger.Logger
	StartingCredits decimal.Decimal
}

type Service struct {
	repo     Repository
	holdings *ledger.Store
	uow      unitOfWork
	outbox   outboxEmitter
	logg     *logger.Logger
	starting decimal.Decimal
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("accounts repository required")
	case params.Holdings == nil:
		return nil, fmt.Errorf("holdings store required")
	case params.UnitOfWork == nil:
		return nil, fmt.Errorf("unit of work required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.StartingCredits.IsNegative():
		return nil, fmt.Errorf("starting credits must not be negative")
	}
	return &Service{
		repo:     params.Repo,
		holdings: params.Holdings,
		uow:      params.UnitOfWork,
		outbox:   params.Outbox,
		logg:     params.Logger,
		starting: params.StartingCredits.Round(2),
	}, nil
}

// Provision creates the economy account for an authenticated identity. An
// existing account is returned unchanged; the bool reports creation.
func (s *Service) Provision(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) (*models.Account, bool, error) {
	if accountID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if !role.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid account role")
	}

	if existing, err := s.Get(ctx, accountID); err == nil {
		return existing, false, nil
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, false, err
	}

	var created *models.Account
	err := s.uow.Do(ctx, "accounts.provision", func(tx *gorm.DB) error {
		account, err := s.holdings.WithTx(tx).Create(ctx, accountID, role, s.starting)
		if err != nil {
			return err
		}
		created = account
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, getErr := s.Get(ctx, accountID)
			return existing, false, getErr
		}
		if pkgerrors.As(err) != nil {
			return nil, false, err
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	s.logg.Info(s.logg.WithAccountID(ctx, accountID.String()), "account.provisioned")
	return created, true, nil
}

func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.repo.Find(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

// PurchaseCredits is a trusted top-up; payment capture happens elsewhere.
func (s *Service) PurchaseCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*TopUpResult, error) {
	if amount.LessThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimals")
	}

	var result *TopUpResult
	err := s.uow.Do(ctx, "accounts.purchase_credits", func(tx *gorm.DB) error {
		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, accountID)
		if err != nil {
			return err
		}
		if err := h.ApplyCreditDelta(amount, enums.CreditEventTopUp, uuid.Nil); err != nil {
			return err
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCreditsPurchased,
			AggregateType: enums.AggregateAccount,
			AggregateID:   accountID,
			Actor:         &outbox.ActorRef{AccountID: accountID, Role: string(h.Role)},
			Data: payloads.CreditsPurchasedEvent{
				AccountID:    accountID,
				Amount:       amount.StringFixed(2),
				BalanceAfter: h.Balance.StringFixed(2),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit credits purchased")
		}
		result = &TopUpResult{Amount: amount, Balance: h.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"account_id": accountID.String(),
		"amount":     amount.StringFixed(2),
	}), "credits.purchased")
	return result, nil
}

// SellCard removes one copy of the card and pays its rarity value.
func (s *Service) SellCard(ctx context.Context, accountID, cardID uuid.UUID) (*SaleResult, error) {
	if cardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card id required")
	}
	card, err := s.repo.FindCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load card")
	}
	value, ok := SaleValue(card.Rarity)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "card rarity has no sale value").
			WithDetails(map[string]any{"rarity": card.Rarity})
	}

	var result *SaleResult
	err = s.uow.Do(ctx, "accounts.sell_card", func(tx *gorm.DB) error {
		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, accountID)
		if err != nil {
			return err
		}
		if !h.Owns(cardID) {
			return pkgerrors.New(pkgerrors.CodeNotOwned, "card not owned").
				WithDetails(map[string]any{"card_id": cardID})
		}
		if err := h.ApplyCardDelta(cardID, -1); err != nil {
			return err
		}
		if err := h.ApplyCreditDelta(value, enums.CreditEventCardSale, cardID); err != nil {
			return err
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCardSold,
			AggregateType: enums.AggregateAccount,
			AggregateID:   accountID,
			Actor:         &outbox.ActorRef{AccountID: accountID, Role: string(h.Role)},
			Data: payloads.CardSoldEvent{
				AccountID: accountID,
				CardID:    cardID,
				Rarity:    string(card.Rarity),
				Value:     value.StringFixed(2),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit card sold")
		}
		result = &SaleResult{Card: *card, Value: value, Balance: h.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"account_id": accountID.String(),
		"card_id":    cardID.String(),
		"value":      value.StringFixed(2),
	}), "card.sold")
	return result, nil
}

// Album pages the account's owned cards.
func (s *Service) Album(ctx context.Context, query AlbumQuery) (*AlbumPage, error) {
	if query.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if query.Rarity != "" && !query.Rarity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rarity")
	}
	if _, err := ParseQuantityOrder(string(query.QuantityOrder)); err != nil {
		return nil, err
	}

	page := pagination.NewPage(query.Page, AlbumPageSize)
	entries, total, err := s.repo.Album(ctx, albumFilter{
		accountID: query.AccountID,
		search:    query.Search,
		rarity:    query.Rarity,
		order:     query.QuantityOrder,
		offset:    page.Offset(),
		limit:     page.Size,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
	}
	if entries == nil {
		entries = []AlbumEntry{}
	}
	return &AlbumPage{
		Cards:      entries,
		Total:      total,
		Page:       page.Number,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *Service) Stats(ctx context.Context, accountID uuid.UUID) (*Stats, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.InventoryTotals(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory totals")
	}
	pending, err := s.repo.CountPendingTrades(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending trades")
	}
	return &Stats{
		Balance:       account.Balance,
		TotalCards:    totals.TotalCards,
		DistinctCards: totals.DistinctCards,
		PendingTrades: pending,
	}, nil
}

// CreditHistory returns the account's newest balance changes first.
func (s *Service) CreditHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxCreditHistory {
		limit = MaxCreditHistory
	}
	events, err := s.holdings.ListCreditEvents(ctx, accountID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit events")
	}
	return events, nil
}
