package packages

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
)

type PurchaseInput struct {
	AccountID    uuid.UUID
	DefinitionID uuid.UUID
	Quantity     int
}

type PurchaseResult struct {
	Instances []models.PackageInstance `json:"instances"`
	TotalCost decimal.Decimal          `json:"total_cost"`
	Balance   decimal.Decimal          `json:"balance"`
}

type OpenInput struct {
	AccountID  uuid.UUID
	InstanceID uuid.UUID
}

// OpenResult carries the reward cards in draw order; duplicates are kept.
type OpenResult struct {
	Instance models.PackageInstance `json:"instance"`
	Cards    []models.Card          `json:"cards"`
}

type RetireInput struct {
	DefinitionID uuid.UUID
	ActorID      uuid.UUID
}

type RetireResult struct {
	DefinitionID     uuid.UUID `json:"definition_id"`
	ForceOpened      int       `json:"force_opened"`
	DeletedInstances int64     `json:"deleted_instances"`
}

type CreateDefinitionInput struct {
	Name                string
	Description         string
	Price               decimal.Decimal
	Size                int
	GuaranteedRare      int
	GuaranteedEpic      int
	GuaranteedLegendary int
	Available           *bool
	CreatedBy           uuid.UUID
}

// DefinitionFilter selects which definitions ListDefinitions returns.
type DefinitionFilter string

const (
	FilterAll       DefinitionFilter = "all"
	FilterAvailable DefinitionFilter = "available"
	// FilterFeatured is available and created inside the featured window.
	FilterFeatured DefinitionFilter = "featured"
)

func ParseDefinitionFilter(value string) (DefinitionFilter, bool) {
	switch DefinitionFilter(value) {
	case "", FilterAll:
		return FilterAll, true
	case FilterAvailable, FilterFeatured:
		return DefinitionFilter(value), true
	default:
		return "", false
	}
}

type ListDefinitionsQuery struct {
	Filter DefinitionFilter
	Now    time.Time
}
