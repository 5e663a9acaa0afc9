package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/internal/accounts"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

func TestAccountProvisionCreated(t *testing.T) {
	accountID := uuid.New()
	svc := &stubAccounts{account: &models.Account{ID: accountID, Balance: decimal.NewFromInt(1000)}, created: true}
	handler := AccountProvision(svc, nil)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me", nil), accountID, enums.AccountRoleAdmin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.lastRole != enums.AccountRoleAdmin {
		t.Fatalf("expected role forwarded, got %q", svc.lastRole)
	}
	var envelope struct {
		Data models.Account `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != accountID {
		t.Fatalf("expected id %s got %s", accountID, envelope.Data.ID)
	}
}

func TestAccountProvisionExisting(t *testing.T) {
	accountID := uuid.New()
	handler := AccountProvision(&stubAccounts{account: &models.Account{ID: accountID}}, nil)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me", nil), accountID, enums.AccountRoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAccountMeMissingIdentity(t *testing.T) {
	handler := AccountMe(&stubAccounts{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAccountAlbumParsesQuery(t *testing.T) {
	svc := &stubAccounts{album: &accounts.AlbumPage{Page: 2, TotalPages: 3}}
	handler := AccountAlbum(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/album?page=2&search=%20aur%20&rarity=epic&order=desc", nil)
	req = withAccount(req, uuid.New(), enums.AccountRoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	got := svc.lastAlbum
	if got.Page != 2 || got.Search != "aur" || got.Rarity != enums.RarityEpic || got.QuantityOrder != accounts.QuantityDesc {
		t.Fatalf("unexpected album query %+v", got)
	}
}

func TestAccountAlbumRejectsUnknownRarity(t *testing.T) {
	handler := AccountAlbum(&stubAccounts{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/album?rarity=mythic", nil)
	req = withAccount(req, uuid.New(), enums.AccountRoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAccountPurchaseCreditsDecodesAmount(t *testing.T) {
	svc := &stubAccounts{topUp: &accounts.TopUpResult{}}
	handler := AccountPurchaseCredits(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/credits", strings.NewReader(`{"amount":"25.50"}`))
	req = withAccount(req, uuid.New(), enums.AccountRoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.lastTopUp.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("expected amount 25.50 got %s", svc.lastTopUp)
	}
}

func TestAccountPurchaseCreditsUnknownField(t *testing.T) {
	handler := AccountPurchaseCredits(&stubAccounts{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/credits", strings.NewReader(`{"amount":5,"card":"x"}`))
	req = withAccount(req, uuid.New(), enums.AccountRoleUser)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAccountSellCardNotOwned(t *testing.T) {
	cardID := uuid.New()
	svc := &stubAccounts{err: pkgerrors.New(pkgerrors.CodeNotOwned, "card not owned")}
	handler := AccountSellCard(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/cards/"+cardID.String()+"/sell", nil)
	req = withURLParam(withAccount(req, uuid.New(), enums.AccountRoleUser), "cardId", cardID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.lastCard != cardID {
		t.Fatalf("expected card %s got %s", cardID, svc.lastCard)
	}
	if !strings.Contains(rec.Body.String(), string(pkgerrors.CodeNotOwned)) {
		t.Fatalf("expected NOT_OWNED in body, got %s", rec.Body.String())
	}
}

func TestAccountSellCardInvalidID(t *testing.T) {
	handler := AccountSellCard(&stubAccounts{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/cards/nope/sell", nil)
	req = withURLParam(withAccount(req, uuid.New(), enums.AccountRoleUser), "cardId", "nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCardSearchDefaultsLimit(t *testing.T) {
	svc := &stubCards{cards: []models.Card{{ID: uuid.New(), Name: "Aurora"}}}
	handler := CardSearch(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cards?search=aur", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastTerm != "aur" || svc.lastLimit != 7 {
		t.Fatalf("unexpected search args %q %d", svc.lastTerm, svc.lastLimit)
	}
}

func TestCardSearchLimitOutOfRange(t *testing.T) {
	handler := CardSearch(&stubCards{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cards?limit=500", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAccountCreditHistoryLimit(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{name: "default", query: "", status: http.StatusOK, limit: 50},
		{name: "explicit", query: "?limit=5", status: http.StatusOK, limit: 5},
		{name: "too large", query: "?limit=101", status: http.StatusBadRequest},
		{name: "zero", query: "?limit=0", status: http.StatusBadRequest},
		{name: "not numeric", query: "?limit=all", status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAccounts{history: []models.CreditLedgerEvent{{Type: enums.CreditEventPackPurchase}}}
			handler := AccountCreditHistory(svc, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/credits/history"+tc.query, nil)
			req = withAccount(req, uuid.New(), enums.AccountRoleUser)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if svc.lastLimit != tc.limit {
				t.Fatalf("expected limit %d got %d", tc.limit, svc.lastLimit)
			}
		})
	}
}

func TestAccountCreditHistoryRequiresAccount(t *testing.T) {
	svc := &stubAccounts{}
	handler := AccountCreditHistory(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/credits/history", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
