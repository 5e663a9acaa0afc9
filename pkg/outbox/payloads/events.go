package payloads

import (
	"github.com/google/uuid"
)

// Credits travel as fixed two-decimal strings so consumers never see float rounding.

type PackagePurchasedEvent struct {
	AccountID    uuid.UUID   `json:"account_id"`
	DefinitionID uuid.UUID   `json:"definition_id"`
	InstanceIDs  []uuid.UUID `json:"instance_ids"`
	Quantity     int         `json:"quantity"`
	TotalCost    string      `json:"total_cost"`
}

// PackageOpenedEvent is emitted for user opens and for retirement force-opens.
type PackageOpenedEvent struct {
	InstanceID   uuid.UUID   `json:"instance_id"`
	AccountID    uuid.UUID   `json:"account_id"`
	DefinitionID uuid.UUID   `json:"definition_id"`
	Rewards      []uuid.UUID `json:"rewards"`
	Forced       bool        `json:"forced"`
}

type DefinitionRetiredEvent struct {
	DefinitionID     uuid.UUID `json:"definition_id"`
	ForceOpened      int       `json:"force_opened"`
	DeletedInstances int       `json:"deleted_instances"`
}

type TradeProposedEvent struct {
	TradeID          uuid.UUID   `json:"trade_id"`
	ProposerID       uuid.UUID   `json:"proposer_id"`
	OfferedCards     []uuid.UUID `json:"offered_cards"`
	RequestedCards   []uuid.UUID `json:"requested_cards"`
	OfferedCredits   string      `json:"offered_credits"`
	RequestedCredits string      `json:"requested_credits"`
}

type TradeAcceptedEvent struct {
	TradeID    uuid.UUID `json:"trade_id"`
	ProposerID uuid.UUID `json:"proposer_id"`
	AcceptorID uuid.UUID `json:"acceptor_id"`
}

type TradeWithdrawnEvent struct {
	TradeID    uuid.UUID `json:"trade_id"`
	ProposerID uuid.UUID `json:"proposer_id"`
}

type CreditsPurchasedEvent struct {
	AccountID    uuid.UUID `json:"account_id"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
}

type CardSoldEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	CardID    uuid.UUID `json:"card_id"`
	Rarity    string    `json:"rarity"`
	Value     string    `json:"value"`
}
