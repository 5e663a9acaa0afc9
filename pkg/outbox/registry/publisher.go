package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/pkg/config"
	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	"github.com/angelmondragon/herovault-backend/pkg/outbox"
	"github.com/angelmondragon/herovault-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry routes every economy event to the economy topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EconomyTopic == "" {
		return nil, fmt.Errorf("economy topic is required")
	}
	topic := cfg.EconomyTopic

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPackagePurchased,
			AggregateType:  enums.AggregateAccount,
			PayloadFactory: func() any { return &payloads.PackagePurchasedEvent{} },
		},
		{
			EventType:      enums.EventPackageOpened,
			AggregateType:  enums.AggregatePackageInstance,
			PayloadFactory: func() any { return &payloads.PackageOpenedEvent{} },
		},
		{
			EventType:      enums.EventPackageForceOpened,
			AggregateType:  enums.AggregatePackageInstance,
			PayloadFactory: func() any { return &payloads.PackageOpenedEvent{} },
		},
		{
			EventType:      enums.EventDefinitionRetired,
			AggregateType:  enums.AggregatePackageDefinition,
			PayloadFactory: func() any { return &payloads.DefinitionRetiredEvent{} },
		},
		{
			EventType:      enums.EventTradeProposed,
			AggregateType:  enums.AggregateTrade,
			PayloadFactory: func() any { return &payloads.TradeProposedEvent{} },
		},
		{
			EventType:      enums.EventTradeAccepted,
			AggregateType:  enums.AggregateTrade,
			PayloadFactory: func() any { return &payloads.TradeAcceptedEvent{} },
		},
		{
			EventType:      enums.EventTradeWithdrawn,
			AggregateType:  enums.AggregateTrade,
			PayloadFactory: func() any { return &payloads.TradeWithdrawnEvent{} },
		},
		{
			EventType:      enums.EventCreditsPurchased,
			AggregateType:  enums.AggregateAccount,
			PayloadFactory: func() any { return &payloads.CreditsPurchasedEvent{} },
		},
		{
			EventType:      enums.EventCardSold,
			AggregateType:  enums.AggregateAccount,
			PayloadFactory: func() any { return &payloads.CardSoldEvent{} },
		},
	} {
		desc.Topic = topic
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Descriptor returns the registration for an event type.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
