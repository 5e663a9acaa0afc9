package controllers

import (
	"net/http"

	"github.com/angelmondragon/herovault-backend/api/responses"
	"github.com/angelmondragon/herovault-backend/api/validators"
	"github.com/angelmondragon/herovault-backend/internal/catalog"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
)

// CardSearch looks up catalog cards by name: ?search=&limit=.
func CardSearch(svc CardsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", catalog.DefaultSearchLimit, 1, catalog.MaxSearchLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cards, err := svc.Search(ctx, validators.SanitizeString(r.URL.Query().Get("search"), 100), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cards)
	}
}

func CardGet(svc CardsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("catalog"))
			return
		}
		cardID, err := uuidParam(r, "cardId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		card, err := svc.Get(ctx, cardID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, card)
	}
}
