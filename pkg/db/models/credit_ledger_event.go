package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// CreditLedgerEvent records an immutable balance change.
type CreditLedgerEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	Type         enums.CreditEventType `gorm:"column:type;type:credit_event_type_enum;not null" json:"type"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(14,2);not null" json:"balance_after"`
	ReferenceID  *uuid.UUID            `gorm:"column:reference_id;type:uuid" json:"reference_id"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (e *CreditLedgerEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
