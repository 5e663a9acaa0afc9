package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// Card is catalog reference data, populated by the import job.
type Card struct {
	ID          uuid.UUID    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalID  *string      `gorm:"column:external_id;uniqueIndex" json:"external_id"`
	Name        string       `gorm:"column:name;not null" json:"name"`
	Description *string      `gorm:"column:description" json:"description"`
	ImageURL    *string      `gorm:"column:image_url" json:"image_url"`
	Rarity      enums.Rarity `gorm:"column:rarity;type:rarity_enum;not null;index" json:"rarity"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (c *Card) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
