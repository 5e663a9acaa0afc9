package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAccount           OutboxAggregateType = "account"
	AggregatePackageInstance   OutboxAggregateType = "package_instance"
	AggregatePackageDefinition OutboxAggregateType = "package_definition"
	AggregateTrade             OutboxAggregateType = "trade"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAccount,
	AggregatePackageInstance,
	AggregatePackageDefinition,
	AggregateTrade,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPackagePurchased   OutboxEventType = "package_purchased"
	EventPackageOpened      OutboxEventType = "package_opened"
	EventPackageForceOpened OutboxEventType = "package_force_opened"
	EventDefinitionRetired  OutboxEventType = "definition_retired"
	EventTradeProposed      OutboxEventType = "trade_proposed"
	EventTradeAccepted      OutboxEventType = "trade_accepted"
	EventTradeWithdrawn     OutboxEventType = "trade_withdrawn"
	EventCreditsPurchased   OutboxEventType = "credits_purchased"
	EventCardSold           OutboxEventType = "card_sold"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPackagePurchased,
	EventPackageOpened,
	EventPackageForceOpened,
	EventDefinitionRetired,
	EventTradeProposed,
	EventTradeAccepted,
	EventTradeWithdrawn,
	EventCreditsPurchased,
	EventCardSold,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
