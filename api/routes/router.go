package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/herovault-backend/api/controllers"
	"github.com/angelmondragon/herovault-backend/api/middleware"
	"github.com/angelmondragon/herovault-backend/pkg/config"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/herovault-backend/pkg/redis"
)

// CacheStore is the redis surface the HTTP stack uses for readiness,
// idempotency replay and mutation rate limits.
type CacheStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Accounts controllers.AccountsService
	Catalog  controllers.CardsService
	Packages controllers.PackagesService
	Trades   controllers.TradesService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	cache CacheStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.MutationRateLimit(cfg.RateLimit, cache, logg))
		r.Use(middleware.Idempotency(cache, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Route("/accounts/me", func(r chi.Router) {
				r.Post("/", controllers.AccountProvision(svc.Accounts, logg))
				r.Get("/", controllers.AccountMe(svc.Accounts, logg))
				r.Get("/stats", controllers.AccountStats(svc.Accounts, logg))
				r.Get("/album", controllers.AccountAlbum(svc.Accounts, logg))
				r.Post("/credits", controllers.AccountPurchaseCredits(svc.Accounts, logg))
				r.Get("/credits/history", controllers.AccountCreditHistory(svc.Accounts, logg))
				r.Post("/cards/{cardId}/sell", controllers.AccountSellCard(svc.Accounts, logg))
			})

			r.Get("/cards", controllers.CardSearch(svc.Catalog, logg))
			r.Get("/cards/{cardId}", controllers.CardGet(svc.Catalog, logg))

			r.Route("/packages", func(r chi.Router) {
				r.Get("/definitions", controllers.PackageDefinitions(svc.Packages, logg))
				r.Get("/definitions/{definitionId}", controllers.PackageDefinitionGet(svc.Packages, logg))
				r.Post("/purchase", controllers.PackagePurchase(svc.Packages, logg))
				r.Get("/unopened", controllers.PackageUnopened(svc.Packages, logg))
				r.Post("/{instanceId}/open", controllers.PackageOpen(svc.Packages, logg))
			})

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", controllers.TradeList(svc.Trades, logg))
				r.Post("/", controllers.TradePropose(svc.Trades, logg))
				r.Get("/mine", controllers.TradeMine(svc.Trades, logg))
				r.Get("/candidates", controllers.TradeCandidates(svc.Trades, logg))
				r.Get("/{tradeId}", controllers.TradeGet(svc.Trades, logg))
				r.Post("/{tradeId}/accept", controllers.TradeAccept(svc.Trades, logg))
				r.Post("/{tradeId}/withdraw", controllers.TradeWithdraw(svc.Trades, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.AccountRoleAdmin, logg))
			r.Route("/packages/definitions", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateDefinition(svc.Packages, logg))
				r.Post("/{definitionId}/toggle", controllers.AdminToggleDefinition(svc.Packages, logg))
				r.Delete("/{definitionId}", controllers.AdminRetireDefinition(svc.Packages, logg))
			})
		})
	})

	return r
}
