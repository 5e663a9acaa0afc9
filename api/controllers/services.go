package controllers

import (
	"context"
	"net/http"
	"strings"

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

// AccountsService is the account surface the HTTP layer needs.
type AccountsService interface {
	Provision(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) (*models.Account, bool, error)
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	Stats(ctx context.Context, accountID uuid.UUID) (*accounts.Stats, error)
	Album(ctx context.Context, query accounts.AlbumQuery) (*accounts.AlbumPage, error)
	PurchaseCredits(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*accounts.TopUpResult, error)
	SellCard(ctx context.Context, accountID, cardID uuid.UUID) (*accounts.SaleResult, error)
	CreditHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error)
}

type CardsService interface {
	Search(ctx context.Context, term string, limit int) ([]models.Card, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Card, error)
}

type PackagesService interface {
	ListDefinitions(ctx context.Context, query packages.ListDefinitionsQuery) ([]models.PackageDefinition, error)
	GetDefinition(ctx context.Context, definitionID uuid.UUID) (*models.PackageDefinition, error)
	Purchase(ctx context.Context, input packages.PurchaseInput) (*packages.PurchaseResult, error)
	ListUnopened(ctx context.Context, accountID uuid.UUID) ([]models.PackageInstance, error)
	Open(ctx context.Context, input packages.OpenInput) (*packages.OpenResult, error)
	CreateDefinition(ctx context.Context, input packages.CreateDefinitionInput) (*models.PackageDefinition, error)
	ToggleAvailability(ctx context.Context, definitionID uuid.UUID) (*models.PackageDefinition, error)
	RetireDefinition(ctx context.Context, input packages.RetireInput) (*packages.RetireResult, error)
}

type TradesService interface {
	ListPending(ctx context.Context, params pagination.Params) (*trades.TradePage, error)
	ListByProposer(ctx context.Context, accountID uuid.UUID) ([]models.Trade, error)
	CardCandidates(ctx context.Context, query trades.CandidatesQuery) ([]models.Card, error)
	Get(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error)
	Propose(ctx context.Context, input trades.ProposeInput) (*models.Trade, error)
	Accept(ctx context.Context, input trades.AcceptInput) (*models.Trade, error)
	Withdraw(ctx context.Context, input trades.WithdrawInput) (*models.Trade, error)
}

func requireAccount(ctx context.Context) (uuid.UUID, error) {
	accountID := middleware.AccountIDFromContext(ctx)
	if accountID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	return accountID, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
