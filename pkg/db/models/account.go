package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// Account is the economy record of an identity. Balance and the related
// AccountCard rows change only through the ledger, guarded by Version.
type Account struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Role      enums.AccountRole `gorm:"column:role;type:account_role_enum;not null" json:"role"`
	Balance   decimal.Decimal   `gorm:"column:balance;type:numeric(14,2);not null" json:"balance"`
	Version   int64             `gorm:"column:version;not null" json:"version"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// AccountCard is one inventory entry; a missing row means quantity zero.
type AccountCard struct {
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	CardID    uuid.UUID `gorm:"column:card_id;type:uuid;primaryKey" json:"card_id"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
