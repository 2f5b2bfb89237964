// Package registry knows, for every outbox event type, which aggregate it
// belongs to, where it is published and how its payload decodes.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry routes every loyalty event to the one loyalty topic; the
// publisher orders messages by aggregate id.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.LoyaltyTopic == "" {
		return nil, errors.New("loyalty topic is required")
	}

	program, ledger := enums.AggregateLoyaltyProgram, enums.AggregateCustomerLedger
	descriptors := []EventDescriptor{
		{EventType: enums.EventProgramPublished, AggregateType: program, PayloadFactory: payloadOf[payloads.ProgramPublishedEvent]()},
		{EventType: enums.EventProgramDeactivated, AggregateType: program, PayloadFactory: payloadOf[payloads.ProgramDeactivatedEvent]()},
		{EventType: enums.EventCustomerJoined, AggregateType: ledger, PayloadFactory: payloadOf[payloads.CustomerJoinedEvent]()},
		{EventType: enums.EventSealsApplied, AggregateType: ledger, PayloadFactory: payloadOf[payloads.SealsAppliedEvent]()},
		{EventType: enums.EventRewardEarned, AggregateType: ledger, PayloadFactory: payloadOf[payloads.RewardEarnedEvent]()},
		{EventType: enums.EventRewardRedeemed, AggregateType: ledger, PayloadFactory: payloadOf[payloads.RewardRedeemedEvent]()},
		{EventType: enums.EventLedgerDeactivated, AggregateType: ledger, PayloadFactory: payloadOf[payloads.LedgerDeactivatedEvent]()},
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		desc.Topic = cfg.LoyaltyTopic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row will not change on its own.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, payload, err := r.DecodeEnvelope(event.EventType, event.Payload)
	if err != nil {
		return nil, err
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// DecodeEnvelope parses an outbox row payload or Pub/Sub message body into
// its envelope and typed payload.
func (r *EventRegistry) DecodeEnvelope(eventType enums.OutboxEventType, raw []byte) (outbox.PayloadEnvelope, any, error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return outbox.PayloadEnvelope{}, nil, nonRetryable("unsupported event type %s", eventType)
	}
	envelope, err := outbox.ParseEnvelope(raw)
	if err != nil {
		return envelope, nil, NewNonRetryableError(err)
	}
	if bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null")) {
		return envelope, nil, nonRetryable("payload missing for %s", eventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return envelope, nil, nonRetryable("decode %s payload: %w", eventType, err)
	}
	return envelope, payload, nil
}
