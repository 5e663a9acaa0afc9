package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/api/middleware"
	"github.com/angelmondragon/herovault-backend/internal/accounts"
	"github.com/angelmondragon/herovault-backend/internal/packages"
	"github.com/angelmondragon/herovault-backend/internal/trades"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
	"github.com/angelmondragon/herovault-backend/pkg/pagination"
)

func withAccount(req *http.Request, accountID uuid.UUID, role enums.AccountRole) *http.Request {
	return req.WithContext(middleware.WithAccount(req.Context(), accountID, role))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type stubAccounts struct {
	account   *models.Account
	created   bool
	album     *accounts.AlbumPage
	stats     *accounts.Stats
	topUp     *accounts.TopUpResult
	sale      *accounts.SaleResult
	err       error
	lastAlbum accounts.AlbumQuery
	lastRole  enums.AccountRole
	lastTopUp decimal.Decimal
	lastCard  uuid.UUID
	history   []models.CreditLedgerEvent
	lastLimit int
}

func (s *stubAccounts) Provision(_ context.Context, _ uuid.UUID, role enums.AccountRole) (*models.Account, bool, error) {
	s.lastRole = role
	return s.account, s.created, s.err
}

func (s *stubAccounts) Get(context.Context, uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

func (s *stubAccounts) Stats(context.Context, uuid.UUID) (*accounts.Stats, error) {
	return s.stats, s.err
}

func (s *stubAccounts) Album(_ context.Context, query accounts.AlbumQuery) (*accounts.AlbumPage, error) {
	s.lastAlbum = query
	return s.album, s.err
}

func (s *stubAccounts) PurchaseCredits(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*accounts.TopUpResult, error) {
	s.lastTopUp = amount
	return s.topUp, s.err
}

func (s *stubAccounts) SellCard(_ context.Context, _ uuid.UUID, cardID uuid.UUID) (*accounts.SaleResult, error) {
	s.lastCard = cardID
	return s.sale, s.err
}

func (s *stubAccounts) CreditHistory(_ context.Context, _ uuid.UUID, limit int) ([]models.CreditLedgerEvent, error) {
	s.lastLimit = limit
	return s.history, s.err
}

type stubCards struct {
	cards     []models.Card
	err       error
	lastTerm  string
	lastLimit int
	lastID    uuid.UUID
}

func (s *stubCards) Search(_ context.Context, term string, limit int) ([]models.Card, error) {
	s.lastTerm, s.lastLimit = term, limit
	return s.cards, s.err
}

func (s *stubCards) Get(_ context.Context, id uuid.UUID) (*models.Card, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.cards {
		if s.cards[i].ID == id {
			return &s.cards[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
}

type stubPackages struct {
	defs           []models.PackageDefinition
	def            *models.PackageDefinition
	purchase       *packages.PurchaseResult
	open           *packages.OpenResult
	retire         *packages.RetireResult
	err            error
	lastFilter     packages.DefinitionFilter
	lastDefinition uuid.UUID
	lastPurchase   packages.PurchaseInput
	lastOpen       packages.OpenInput
	lastCreate     packages.CreateDefinitionInput
	lastRetire     packages.RetireInput
}

func (s *stubPackages) ListDefinitions(_ context.Context, query packages.ListDefinitionsQuery) ([]models.PackageDefinition, error) {
	s.lastFilter = query.Filter
	return s.defs, s.err
}

func (s *stubPackages) GetDefinition(_ context.Context, definitionID uuid.UUID) (*models.PackageDefinition, error) {
	s.lastDefinition = definitionID
	if s.err != nil {
		return nil, s.err
	}
	return s.def, nil
}

func (s *stubPackages) Purchase(_ context.Context, input packages.PurchaseInput) (*packages.PurchaseResult, error) {
	s.lastPurchase = input
	return s.purchase, s.err
}

func (s *stubPackages) ListUnopened(context.Context, uuid.UUID) ([]models.PackageInstance, error) {
	return nil, s.err
}

func (s *stubPackages) Open(_ context.Context, input packages.OpenInput) (*packages.OpenResult, error) {
	s.lastOpen = input
	return s.open, s.err
}

func (s *stubPackages) CreateDefinition(_ context.Context, input packages.CreateDefinitionInput) (*models.PackageDefinition, error) {
	s.lastCreate = input
	return s.def, s.err
}

func (s *stubPackages) ToggleAvailability(context.Context, uuid.UUID) (*models.PackageDefinition, error) {
	return s.def, s.err
}

func (s *stubPackages) RetireDefinition(_ context.Context, input packages.RetireInput) (*packages.RetireResult, error) {
	s.lastRetire = input
	return s.retire, s.err
}

type stubTrades struct {
	trade          *models.Trade
	page           *trades.TradePage
	cards          []models.Card
	err            error
	lastParams     pagination.Params
	lastCandidates trades.CandidatesQuery
	lastPropose    trades.ProposeInput
	lastAccept     trades.AcceptInput
	lastWithdraw   trades.WithdrawInput
}

func (s *stubTrades) ListPending(_ context.Context, params pagination.Params) (*trades.TradePage, error) {
	s.lastParams = params
	return s.page, s.err
}

func (s *stubTrades) ListByProposer(context.Context, uuid.UUID) ([]models.Trade, error) {
	if s.trade == nil {
		return nil, s.err
	}
	return []models.Trade{*s.trade}, s.err
}

func (s *stubTrades) CardCandidates(_ context.Context, query trades.CandidatesQuery) ([]models.Card, error) {
	s.lastCandidates = query
	return s.cards, s.err
}

func (s *stubTrades) Get(context.Context, uuid.UUID) (*models.Trade, error) {
	return s.trade, s.err
}

func (s *stubTrades) Propose(_ context.Context, input trades.ProposeInput) (*models.Trade, error) {
	s.lastPropose = input
	return s.trade, s.err
}

func (s *stubTrades) Accept(_ context.Context, input trades.AcceptInput) (*models.Trade, error) {
	s.lastAccept = input
	return s.trade, s.err
}

func (s *stubTrades) Withdraw(_ context.Context, input trades.WithdrawInput) (*models.Trade, error) {
	s.lastWithdraw = input
	return s.trade, s.err
}
