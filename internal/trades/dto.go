package trades

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
)

const (
	DefaultCandidateLimit = 10
	MaxCandidateLimit     = 50
)

type ProposeInput struct {
	ProposerID       uuid.UUID
	Name             string
	OfferedCards     []uuid.UUID
	RequestedCards   []uuid.UUID
	OfferedCredits   decimal.Decimal
	RequestedCredits decimal.Decimal
}

type AcceptInput struct {
	TradeID    uuid.UUID
	AcceptorID uuid.UUID
}

type WithdrawInput struct {
	TradeID     uuid.UUID
	RequesterID uuid.UUID
}

type TradePage struct {
	Trades     []models.Trade `json:"trades"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CandidateKind picks which side of a trade the candidates are for.
type CandidateKind string

const (
	// CandidatesOffer lists cards the account owns.
	CandidatesOffer CandidateKind = "offer"
	// CandidatesRequest lists catalog cards the account does not own.
	CandidatesRequest CandidateKind = "request"
)

type CandidatesQuery struct {
	AccountID uuid.UUID
	Kind      CandidateKind
	Search    string
	Limit     int
}
