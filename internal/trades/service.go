package trades

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/internal/ledger"
	"github.com/angelmondragon/herovault-backend/pkg/db"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herovault-backend/pkg/db/types"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/metrics"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/herovault-backend/pkg/pagination"
)

type unitOfWork interface {
	Do(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error
}

type cardCatalog interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Card, error)
	SearchExcluding(ctx context.Context, term string, exclude []uuid.UUID, limit int) ([]models.Card, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type tradeRecorder interface {
	IncTrade(outcome string)
}

type ServiceParams struct {
	Repo       Repository
	Holdings   *ledger.Store
	UnitOfWork unitOfWork
	Catalog    cardCatalog
	Outbox     outboxEmitter
	Metrics    tradeRecorder
	Logger     *logger.Logger
}

type Service struct {
	repo     Repository
	holdings *ledger.Store
	uow      unitOfWork
	catalog  cardCatalog
	outbox   outboxEmitter
	metrics  tradeRecorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("trades repository required")
	case params.Holdings == nil:
		return nil, fmt.Errorf("holdings store required")
	case params.UnitOfWork == nil:
		return nil, fmt.Errorf("unit of work required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("card catalog required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	recorder := params.Metrics
	if recorder == nil {
		recorder = (*metrics.EconomyMetrics)(nil)
	}
	return &Service{
		repo:     params.Repo,
		holdings: params.Holdings,
		uow:      params.UnitOfWork,
		catalog:  params.Catalog,
		outbox:   params.Outbox,
		metrics:  recorder,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Propose escrows the offered cards and credits out of the proposer's
// account and records a pending trade.
func (s *Service) Propose(ctx context.Context, input ProposeInput) (*models.Trade, error) {
	if input.ProposerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	offered := dbtypes.Dedupe(input.OfferedCards)
	requested := dbtypes.Dedupe(input.RequestedCards)
	if len(offered) == 0 && len(requested) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyTrade, "trade must offer or request at least one card")
	}
	for _, id := range offered {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card ids must be set")
		}
		if requested.Contains(id) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a card cannot be both offered and requested").
				WithDetails(map[string]any{"card_id": id})
		}
	}
	if err := validateCredits(input.OfferedCredits, "offered_credits"); err != nil {
		return nil, err
	}
	if err := validateCredits(input.RequestedCredits, "requested_credits"); err != nil {
		return nil, err
	}
	if len(requested) > 0 {
		if _, err := s.catalog.Lookup(ctx, requested); err != nil {
			return nil, err
		}
	}

	var name *string
	if trimmed := strings.TrimSpace(input.Name); trimmed != "" {
		name = &trimmed
	}

	var created *models.Trade
	err := s.uow.Do(ctx, "trades.propose", func(tx *gorm.DB) error {
		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, input.ProposerID)
		if err != nil {
			return err
		}

		trade := &models.Trade{
			ID:               uuid.New(),
			Name:             name,
			ProposerID:       input.ProposerID,
			OfferedCards:     offered,
			RequestedCards:   requested,
			OfferedCredits:   input.OfferedCredits,
			RequestedCredits: input.RequestedCredits,
			Status:           enums.TradeStatusPending,
		}

		for _, cardID := range offered {
			if !h.Owns(cardID) {
				return notOwned("proposer does not own an offered card", cardID)
			}
			if err := h.ApplyCardDelta(cardID, -1); err != nil {
				return err
			}
		}
		if err := h.ApplyCreditDelta(input.OfferedCredits.Neg(), enums.CreditEventTradeEscrow, trade.ID); err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Create(ctx, trade); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trade")
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTradeProposed,
			AggregateType: enums.AggregateTrade,
			AggregateID:   trade.ID,
			Actor:         &outbox.ActorRef{AccountID: input.ProposerID, Role: string(h.Role)},
			Data: payloads.TradeProposedEvent{
				TradeID:          trade.ID,
				ProposerID:       input.ProposerID,
				OfferedCards:     offered,
				RequestedCards:   requested,
				OfferedCredits:   input.OfferedCredits.StringFixed(2),
				RequestedCredits: input.RequestedCredits.StringFixed(2),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trade proposed")
		}
		created = trade
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTrade(metrics.TradeProposed)
	s.logg.Info(s.tradeLogCtx(ctx, created), "trade.proposed")
	return created, nil
}

// Accept settles a pending trade. The acceptor swaps the requested cards and
// credits for the escrowed offer; the proposer's only change is receiving the
// requested credits, since their offer left their account at proposal time.
func (s *Service) Accept(ctx context.Context, input AcceptInput) (*models.Trade, error) {
	if input.AcceptorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if input.TradeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trade id required")
	}

	var accepted *models.Trade
	err := s.uow.Do(ctx, "trades.accept", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trade, err := repo.Find(ctx, input.TradeID)
		if err != nil {
			return mapRepoErr(err)
		}
		next, err := transition(trade.Status, eventAccept)
		if err != nil {
			return err
		}
		if trade.ProposerID == input.AcceptorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot accept your own trade")
		}

		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, input.AcceptorID)
		if err != nil {
			return err
		}
		for _, cardID := range trade.RequestedCards {
			if !h.Owns(cardID) {
				return notOwned("acceptor does not own a requested card", cardID)
			}
		}
		for _, cardID := range trade.OfferedCards {
			if h.Owns(cardID) {
				return notOwned("acceptor already owns an offered card", cardID)
			}
		}

		for _, cardID := range trade.RequestedCards {
			if err := h.ApplyCardDelta(cardID, -1); err != nil {
				return err
			}
		}
		for _, cardID := range trade.OfferedCards {
			if err := h.ApplyCardDelta(cardID, 1); err != nil {
				return err
			}
		}
		net := trade.OfferedCredits.Sub(trade.RequestedCredits)
		if err := h.ApplyCreditDelta(net, enums.CreditEventTradeSettle, trade.ID); err != nil {
			return err
		}

		var proposer *ledger.Holdings
		if trade.RequestedCredits.IsPositive() {
			proposer, err = store.Load(ctx, trade.ProposerID)
			if err != nil {
				return err
			}
			if err := proposer.ApplyCreditDelta(trade.RequestedCredits, enums.CreditEventTradeSettle, trade.ID); err != nil {
				return err
			}
		}

		at := s.now()
		if err := s.finalize(ctx, repo, trade, next, eventAccept, &input.AcceptorID, at); err != nil {
			return err
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}
		if proposer != nil {
			if err := store.Save(ctx, proposer); err != nil {
				return err
			}
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTradeAccepted,
			AggregateType: enums.AggregateTrade,
			AggregateID:   trade.ID,
			Actor:         &outbox.ActorRef{AccountID: input.AcceptorID, Role: string(h.Role)},
			Data: payloads.TradeAcceptedEvent{
				TradeID:    trade.ID,
				ProposerID: trade.ProposerID,
				AcceptorID: input.AcceptorID,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trade accepted")
		}

		acceptorID := input.AcceptorID
		trade.Status = next
		trade.AcceptorID = &acceptorID
		trade.FinalizedAt = &at
		accepted = trade
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTrade(metrics.TradeAccepted)
	s.logg.Info(s.tradeLogCtx(ctx, accepted), "trade.accepted")
	return accepted, nil
}

// Withdraw refunds the escrow to the proposer and closes the trade. The row
// is kept with status withdrawn.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Trade, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if input.TradeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trade id required")
	}

	var withdrawn *models.Trade
	err := s.uow.Do(ctx, "trades.withdraw", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trade, err := repo.Find(ctx, input.TradeID)
		if err != nil {
			return mapRepoErr(err)
		}
		if trade.ProposerID != input.RequesterID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the proposer can withdraw a trade")
		}
		next, err := transition(trade.Status, eventWithdraw)
		if err != nil {
			return err
		}

		store := s.holdings.WithTx(tx)
		h, err := store.Load(ctx, trade.ProposerID)
		if err != nil {
			return err
		}
		for _, cardID := range trade.OfferedCards {
			if err := h.ApplyCardDelta(cardID, 1); err != nil {
				return err
			}
		}
		if err := h.ApplyCreditDelta(trade.OfferedCredits, enums.CreditEventTradeRefund, trade.ID); err != nil {
			return err
		}

		at := s.now()
		if err := s.finalize(ctx, repo, trade, next, eventWithdraw, nil, at); err != nil {
			return err
		}
		if err := store.Save(ctx, h); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTradeWithdrawn,
			AggregateType: enums.AggregateTrade,
			AggregateID:   trade.ID,
			Actor:         &outbox.ActorRef{AccountID: input.RequesterID, Role: string(h.Role)},
			Data:          payloads.TradeWithdrawnEvent{TradeID: trade.ID, ProposerID: trade.ProposerID},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trade withdrawn")
		}

		trade.Status = next
		trade.FinalizedAt = &at
		withdrawn = trade
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTrade(metrics.TradeWithdrawn)
	s.logg.Info(s.tradeLogCtx(ctx, withdrawn), "trade.withdrawn")
	return withdrawn, nil
}

// finalize applies the status compare-and-set. Losing the race to another
// finalizer surfaces as ALREADY_FINALIZED.
func (s *Service) finalize(ctx context.Context, repo Repository, trade *models.Trade, next enums.TradeStatus, event tradeEvent, acceptorID *uuid.UUID, at time.Time) error {
	ok, err := repo.Finalize(ctx, trade.ID, next, acceptorID, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update trade status")
	}
	if ok {
		return nil
	}
	current, err := repo.Find(ctx, trade.ID)
	if err != nil {
		return mapRepoErr(err)
	}
	if _, err := transition(current.Status, event); err != nil {
		return err
	}
	return db.ErrStaleWrite
}

func (s *Service) Get(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.repo.Find(ctx, tradeID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return trade, nil
}

// ListPending pages pending trades newest first.
func (s *Service) ListPending(ctx context.Context, params pagination.Params) (*TradePage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListPending(ctx, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trades")
	}

	page := &TradePage{Trades: rows}
	if len(rows) > limit {
		page.Trades = rows[:limit]
		last := page.Trades[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// ListByProposer returns the account's own pending trades.
func (s *Service) ListByProposer(ctx context.Context, accountID uuid.UUID) ([]models.Trade, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	rows, err := s.repo.ListPendingByProposer(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trades")
	}
	return rows, nil
}

// CardCandidates suggests cards for either side of a new trade.
func (s *Service) CardCandidates(ctx context.Context, query CandidatesQuery) ([]models.Card, error) {
	if query.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	if limit > MaxCandidateLimit {
		limit = MaxCandidateLimit
	}

	switch query.Kind {
	case CandidatesOffer:
		cards, err := s.repo.OwnedCards(ctx, query.AccountID, query.Search, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned cards")
		}
		return cards, nil
	case CandidatesRequest:
		h, err := s.holdings.Load(ctx, query.AccountID)
		if err != nil {
			return nil, err
		}
		owned := make([]uuid.UUID, 0, len(h.Inventory))
		for cardID := range h.Inventory {
			owned = append(owned, cardID)
		}
		return s.catalog.SearchExcluding(ctx, query.Search, owned, limit)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be offer or request")
	}
}

func (s *Service) tradeLogCtx(ctx context.Context, trade *models.Trade) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"trade_id":    trade.ID.String(),
		"proposer_id": trade.ProposerID.String(),
		"status":      string(trade.Status),
	})
}

func validateCredits(amount decimal.Decimal, field string) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits must not be negative").
			WithDetails(map[string]any{"field": field})
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits support at most two decimals").
			WithDetails(map[string]any{"field": field})
	}
	return nil
}

func notOwned(message string, cardID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotOwned, message).WithDetails(map[string]any{"card_id": cardID})
}

func mapRepoErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "trade not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trade")
}
