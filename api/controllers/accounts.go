package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/api/middleware"
	"github.com/angelmondragon/herovault-backend/api/responses"
	"github.com/angelmondragon/herovault-backend/api/validators"
	"github.com/angelmondragon/herovault-backend/internal/accounts"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
)

type purchaseCreditsRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"credits"`
}

// AccountProvision creates the caller's economy account on first sign-in.
func AccountProvision(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, created, err := svc.Provision(ctx, accountID, middleware.RoleFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, account)
	}
}

func AccountMe(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		account, err := svc.Get(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

func AccountStats(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		stats, err := svc.Stats(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AccountAlbum pages the caller's cards: ?page=&search=&rarity=&order=asc|desc.
func AccountAlbum(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rarity, err := validators.ParseQueryEnum(r, "rarity", enums.ParseRarity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		order, err := accounts.ParseQuantityOrder(query.Get("order"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		album, err := svc.Album(ctx, accounts.AlbumQuery{
			AccountID:     accountID,
			Page:          page,
			Search:        validators.SanitizeString(query.Get("search"), 100),
			Rarity:        rarity,
			QuantityOrder: order,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, album)
	}
}

// AccountCreditHistory lists the caller's balance changes, newest first: ?limit=.
func AccountCreditHistory(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, accounts.MaxCreditHistory)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		events, err := svc.CreditHistory(ctx, accountID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func AccountPurchaseCredits(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req purchaseCreditsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.PurchaseCredits(ctx, accountID, req.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AccountSellCard(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("accounts"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cardID, err := uuidParam(r, "cardId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.SellCard(ctx, accountID, cardID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
