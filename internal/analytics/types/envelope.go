package types

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
)

// Envelope is a loyalty event as the analytics worker sees it: message
// attributes merged with the stored outbox envelope.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}

// Decode builds an Envelope from a Pub/Sub message body and its attributes.
// The stored envelope wins for event id and occurred_at; attributes fill the
// gaps and carry the routing fields.
func Decode(data []byte, attrs map[string]string) (Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &stored); err != nil {
		return Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(attrs[key]) }

	env := Envelope{
		EventID:     cmp.Or(strings.TrimSpace(stored.EventID), attr("event_id")),
		AggregateID: attr("aggregate_id"),
		OccurredAt:  stored.OccurredAt,
		Actor:       stored.Actor,
		Payload:     stored.Data,
	}
	var err error
	if env.EventType, err = enums.ParseOutboxEventType(attr("event_type")); err != nil {
		return Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	if env.AggregateType, err = enums.ParseOutboxAggregateType(attr("aggregate_type")); err != nil {
		return Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}
	switch {
	case env.AggregateID == "":
		return Envelope{}, errors.New("aggregate_id missing")
	case env.EventID == "":
		return Envelope{}, errors.New("event_id missing")
	case !stored.HasData():
		return Envelope{}, errors.New("payload missing")
	}
	if env.OccurredAt.IsZero() {
		if created, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			env.OccurredAt = created
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}
