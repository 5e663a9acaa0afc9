package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/api/responses"
	"github.com/angelmondragon/herovault-backend/api/validators"
	"github.com/angelmondragon/herovault-backend/internal/packages"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
)

type purchasePackageRequest struct {
	DefinitionID uuid.UUID `json:"definition_id" validate:"required"`
	Quantity     *int      `json:"quantity" validate:"omitempty,min=1,max=10"`
}

// PackageDefinitions lists definitions: ?filter=all|available|featured.
func PackageDefinitions(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		filter := packages.DefinitionFilter(validators.SanitizeString(r.URL.Query().Get("filter"), 20))
		defs, err := svc.ListDefinitions(ctx, packages.ListDefinitionsQuery{Filter: filter})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, defs)
	}
}

func PackageDefinitionGet(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		definitionID, err := uuidParam(r, "definitionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		def, err := svc.GetDefinition(ctx, definitionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, def)
	}
}

func PackagePurchase(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req purchasePackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		result, err := svc.Purchase(ctx, packages.PurchaseInput{
			AccountID:    accountID,
			DefinitionID: req.DefinitionID,
			Quantity:     quantity,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PackageUnopened(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.ListUnopened(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func PackageOpen(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		accountID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		instanceID, err := uuidParam(r, "instanceId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Open(ctx, packages.OpenInput{AccountID: accountID, InstanceID: instanceID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
