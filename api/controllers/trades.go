package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/api/responses"
	"github.com/angelmondragon/herovault-backend/api/validators"
	"github.com/angelmondragon/herovault-backend/internal/trades"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	"github.com/angelmondragon/herovault-backend/pkg/pagination"
)

type proposeTradeRequest struct {
	Name             string          `json:"name" validate:"max=120"`
	OfferedCards     []uuid.UUID     `json:"offered_cards" validate:"max=50"`
	RequestedCards   []uuid.UUID     `json:"requested_cards" validate:"max=50"`
	OfferedCredits   decimal.Decimal `json:"offered_credits" validate:"credits"`
	RequestedCredits decimal.Decimal `json:"requested_credits" validate:"credits"`
}

type tradeListResponse struct {
	Trades     any    `json:"trades"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// TradeList pages the open trade board: ?limit=&cursor=.
func TradeList(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListPending(ctx, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, tradeListResponse{Trades: page.Trades, NextCursor: page.NextCursor})
	}
}

func TradeMine(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.ListByProposer(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// TradeCandidates suggests cards for a new trade: ?type=offer|request&search=&limit=.
func TradeCandidates(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", trades.DefaultCandidateLimit, 1, trades.MaxCandidateLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		cards, err := svc.CardCandidates(ctx, trades.CandidatesQuery{
			AccountID: accountID,
			Kind:      trades.CandidateKind(strings.ToLower(strings.TrimSpace(query.Get("type")))),
			Search:    validators.SanitizeString(query.Get("search"), 100),
			Limit:     limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cards)
	}
}

func TradeGet(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		tradeID, err := uuidParam(r, "tradeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		trade, err := svc.Get(ctx, tradeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

func TradePropose(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req proposeTradeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := svc.Propose(ctx, trades.ProposeInput{
			ProposerID:       accountID,
			Name:             validators.SanitizeString(req.Name, 120),
			OfferedCards:     req.OfferedCards,
			RequestedCards:   req.RequestedCards,
			OfferedCredits:   req.OfferedCredits,
			RequestedCredits: req.RequestedCredits,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trade)
	}
}

func TradeAccept(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := uuidParam(r, "tradeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		trade, err := svc.Accept(ctx, trades.AcceptInput{TradeID: tradeID, AcceptorID: accountID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

func TradeWithdraw(svc TradesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("trades"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := uuidParam(r, "tradeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		trade, err := svc.Withdraw(ctx, trades.WithdrawInput{TradeID: tradeID, RequesterID: accountID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}
