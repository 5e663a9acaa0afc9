package enums

import "fmt"

// CreditEventType maps to the credit_event_type_enum enum in Postgres.
type CreditEventType string

const (
	CreditEventTopUp         CreditEventType = "top_up"
	CreditEventPackPurchase  CreditEventType = "package_purchase"
	CreditEventTradeEscrow   CreditEventType = "trade_escrow"
	CreditEventTradeRefund   CreditEventType = "trade_refund"
	CreditEventTradeSettle   CreditEventType = "trade_settlement"
	CreditEventCardSale      CreditEventType = "card_sale"
	CreditEventStartingGrant CreditEventType = "starting_grant"
)

var validCreditEventTypes = []CreditEventType{
	CreditEventTopUp,
	CreditEventPackPurchase,
	CreditEventTradeEscrow,
	CreditEventTradeRefund,
	CreditEventTradeSettle,
	CreditEventCardSale,
	CreditEventStartingGrant,
}

// IsValid reports whether the value matches the canonical credit event enum.
func (t CreditEventType) IsValid() bool {
	for _, candidate := range validCreditEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCreditEventType converts raw input into CreditEventType.
func ParseCreditEventType(value string) (CreditEventType, error) {
	for _, candidate := range validCreditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit event type %q", value)
}
