package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/pkg/config"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
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

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry routes order lifecycle events to the orders topic, money
// events to billing and operational alerts to notifications.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.BillingTopic == "" {
		return nil, fmt.Errorf("billing topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	orders := cfg.OrdersTopic
	billing := cfg.BillingTopic
	notifications := cfg.NotificationTopic

	itemChanged := func() any { return &payloads.OrderItemChangedEvent{} }
	statusChanged := func() any { return &payloads.OrderStatusChangedEvent{} }

	for _, desc := range []EventDescriptor{
		{enums.EventOrderCreated, enums.AggregateOrder, orders, func() any { return &payloads.OrderCreatedEvent{} }},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, orders, statusChanged},
		{enums.EventOrderShipped, enums.AggregateOrder, orders, statusChanged},
		{enums.EventOrderCancelled, enums.AggregateOrder, orders, func() any { return &payloads.OrderCancelledEvent{} }},
		{enums.EventOrderItemCancelled, enums.AggregateOrderItem, orders, itemChanged},
		{enums.EventOrderItemReturned, enums.AggregateOrderItem, orders, itemChanged},
		{enums.EventOrderItemQuantityChanged, enums.AggregateOrderItem, orders, itemChanged},
		{enums.EventOrderRefunded, enums.AggregateOrder, billing, func() any { return &payloads.OrderRefundedEvent{} }},
		{enums.EventPayoutPaid, enums.AggregateSupplierPayout, billing, func() any { return &payloads.PayoutPaidEvent{} }},
		{enums.EventPayoutDeleted, enums.AggregateSupplierPayout, billing, func() any { return &payloads.PayoutDeletedEvent{} }},
		{enums.EventLowStockDetected, enums.AggregateProduct, notifications, func() any { return &payloads.LowStockDetectedEvent{} }},
		{enums.EventLedgerDriftDetected, enums.AggregateProduct, notifications, func() any { return &payloads.LedgerDriftDetectedEvent{} }},
	} {
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

// Topics lists every distinct topic the registry routes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
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

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
