package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/herovault-backend/pkg/db/types"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

// Trade is a two-party proposal. Offered cards and credits are already held
// out of the proposer's account while the trade is pending.
type Trade struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name             *string           `gorm:"column:name" json:"name"`
	ProposerID       uuid.UUID         `gorm:"column:proposer_id;type:uuid;not null;index" json:"proposer_id"`
	AcceptorID       *uuid.UUID        `gorm:"column:acceptor_id;type:uuid" json:"acceptor_id"`
	OfferedCards     dbtypes.UUIDArray `gorm:"column:offered_cards;not null" json:"offered_cards"`
	RequestedCards   dbtypes.UUIDArray `gorm:"column:requested_cards;not null" json:"requested_cards"`
	OfferedCredits   decimal.Decimal   `gorm:"column:offered_credits;type:numeric(14,2);not null" json:"offered_credits"`
	RequestedCredits decimal.Decimal   `gorm:"column:requested_credits;type:numeric(14,2);not null" json:"requested_credits"`
	Status           enums.TradeStatus `gorm:"column:status;type:trade_status_enum;not null;index" json:"status"`
	FinalizedAt      *time.Time        `gorm:"column:finalized_at" json:"finalized_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (t *Trade) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	if t.OfferedCards == nil {
		t.OfferedCards = dbtypes.UUIDArray{}
	}
	if t.RequestedCards == nil {
		t.RequestedCards = dbtypes.UUIDArray{}
	}
	return nil
}
