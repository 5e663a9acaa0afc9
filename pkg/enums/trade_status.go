package enums

import "fmt"

// TradeStatus tracks the lifecycle of a trade proposal.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusAccepted  TradeStatus = "accepted"
	TradeStatusWithdrawn TradeStatus = "withdrawn"
)

var validTradeStatuses = []TradeStatus{
	TradeStatusPending,
	TradeStatusAccepted,
	TradeStatusWithdrawn,
}

// String implements fmt.Stringer.
func (s TradeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TradeStatus.
func (s TradeStatus) IsValid() bool {
	for _, candidate := range validTradeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusAccepted || s == TradeStatusWithdrawn
}

// ParseTradeStatus converts raw input into a TradeStatus.
func ParseTradeStatus(value string) (TradeStatus, error) {
	for _, candidate := range validTradeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade status %q", value)
}
