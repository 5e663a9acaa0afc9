package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/api/responses"
	"github.com/angelmondragon/herovault-backend/api/validators"
	"github.com/angelmondragon/herovault-backend/internal/packages"
	"github.com/angelmondragon/herovault-backend/pkg/logger"
)

type createDefinitionRequest struct {
	Name                string          `json:"name" validate:"required,max=120"`
	Description         string          `json:"description" validate:"max=1000"`
	Price               decimal.Decimal `json:"price" validate:"credits"`
	Size                int             `json:"size" validate:"required,min=1"`
	GuaranteedRare      int             `json:"guaranteed_rare" validate:"min=0"`
	GuaranteedEpic      int             `json:"guaranteed_epic" validate:"min=0"`
	GuaranteedLegendary int             `json:"guaranteed_legendary" validate:"min=0"`
	Available           *bool           `json:"is_available"`
}

// AdminCreateDefinition adds a package definition. Admin only.
func AdminCreateDefinition(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		actorID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req createDefinitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		def, err := svc.CreateDefinition(ctx, packages.CreateDefinitionInput{
			Name:                validators.SanitizeString(req.Name, 120),
			Description:         validators.SanitizeString(req.Description, 1000),
			Price:               req.Price,
			Size:                req.Size,
			GuaranteedRare:      req.GuaranteedRare,
			GuaranteedEpic:      req.GuaranteedEpic,
			GuaranteedLegendary: req.GuaranteedLegendary,
			Available:           req.Available,
			CreatedBy:           actorID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, def)
	}
}

func AdminToggleDefinition(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
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
		def, err := svc.ToggleAvailability(ctx, definitionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, def)
	}
}

// AdminRetireDefinition force-opens outstanding instances and deletes the definition.
func AdminRetireDefinition(svc PackagesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("packages"))
			return
		}
		actorID, err := requireAccount(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		definitionID, err := uuidParam(r, "definitionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.RetireDefinition(ctx, packages.RetireInput{DefinitionID: definitionID, ActorID: actorID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
