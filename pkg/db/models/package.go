package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/herovault-backend/pkg/db/types"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// PackageDefinition is a purchasable template.
type PackageDefinition struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                string          `gorm:"column:name;not null" json:"name"`
	Description         string          `gorm:"column:description;not null" json:"description"`
	Price               decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null" json:"price"`
	Size                int             `gorm:"column:size;not null" json:"size"`
	GuaranteedRare      int             `gorm:"column:guaranteed_rare;not null" json:"guaranteed_rare"`
	GuaranteedEpic      int             `gorm:"column:guaranteed_epic;not null" json:"guaranteed_epic"`
	GuaranteedLegendary int             `gorm:"column:guaranteed_legendary;not null" json:"guaranteed_legendary"`
	IsAvailable         bool            `gorm:"column:is_available;not null" json:"is_available"`
	CreatedBy           *uuid.UUID      `gorm:"column:created_by;type:uuid" json:"created_by"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (d *PackageDefinition) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// Guarantees returns the guaranteed slot count per rarity.
func (d PackageDefinition) Guarantees() map[enums.Rarity]int {
	return map[enums.Rarity]int{
		enums.RarityLegendary: d.GuaranteedLegendary,
		enums.RarityEpic:      d.GuaranteedEpic,
		enums.RarityRare:      d.GuaranteedRare,
	}
}

// PackageInstance is one purchased package. Opened flips once and Rewards is
// written in the same update.
type PackageInstance struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	DefinitionID uuid.UUID         `gorm:"column:definition_id;type:uuid;not null;index" json:"definition_id"`
	Opened       bool              `gorm:"column:opened;not null" json:"opened"`
	Rewards      dbtypes.UUIDArray `gorm:"column:rewards;not null" json:"rewards"`
	OpenedAt     *time.Time        `gorm:"column:opened_at" json:"opened_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (p *PackageInstance) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Rewards == nil {
		p.Rewards = dbtypes.UUIDArray{}
	}
	return nil
}
