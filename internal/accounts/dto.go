package accounts

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

const AlbumPageSize = 15

// MaxCreditHistory caps one credit history read.
const MaxCreditHistory = 100

// QuantityOrder sorts album entries by owned quantity before name.
type QuantityOrder string

const (
	QuantityNone QuantityOrder = ""
	QuantityAsc  QuantityOrder = "asc"
	QuantityDesc QuantityOrder = "desc"
)

func ParseQuantityOrder(raw string) (QuantityOrder, error) {
	switch order := QuantityOrder(strings.ToLower(strings.TrimSpace(raw))); order {
	case QuantityNone, QuantityAsc, QuantityDesc:
		return order, nil
	default:
		return QuantityNone, pkgerrors.New(pkgerrors.CodeValidation, "quantity order must be asc or desc")
	}
}

// saleValues is what the house pays per card, by rarity.
var saleValues = map[enums.Rarity]decimal.Decimal{
	enums.RarityCommon:    decimal.RequireFromString("0.20"),
	enums.RarityUncommon:  decimal.RequireFromString("0.50"),
	enums.RarityRare:      decimal.NewFromInt(1),
	enums.RarityEpic:      decimal.NewFromInt(2),
	enums.RarityLegendary: decimal.NewFromInt(5),
}

// SaleValue returns the credits paid for selling one card of rarity.
func SaleValue(rarity enums.Rarity) (decimal.Decimal, bool) {
	value, ok := saleValues[rarity]
	return value.Round(2), ok
}

type AlbumQuery struct {
	AccountID     uuid.UUID
	Page          int
	Search        string
	Rarity        enums.Rarity
	QuantityOrder QuantityOrder
}

type AlbumPage struct {
	Cards      []AlbumEntry `json:"cards"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
}

type Stats struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalCards    int64           `json:"total_cards"`
	DistinctCards int64           `json:"distinct_cards"`
	PendingTrades int64           `json:"pending_trades"`
}

type SaleResult struct {
	Card    models.Card     `json:"card"`
	Value   decimal.Decimal `json:"value"`
	Balance decimal.Decimal `json:"balance"`
}

type TopUpResult struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}
