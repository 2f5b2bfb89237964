package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/sealcard-backend/internal/analytics/types"
	"github.com/angelmondragon/sealcard-backend/internal/analytics/writer"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers seal_events rows.
type Writer interface {
	InsertSealEvent(ctx context.Context, row types.SealEventRow) error
}

// Handler receives an envelope plus its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches envelopes to the handler registered for their event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires a row builder per loyalty event. overrides replaces the
// handler for an already known event type.
func NewRouter(w Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := defaultEntries(w)
	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}
	return &Router{handlers: entries, logg: logg}, nil
}

// Handle decodes the payload and runs the matching handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := entry.factory()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return entry.handler.Handle(ctx, envelope, payload)
}

// rowHandler turns a typed payload into one seal_events row.
type rowHandler[T any] struct {
	writer Writer
	build  func(types.Envelope, *T) types.SealEventRow
}

func (h rowHandler[T]) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	typed, ok := payload.(*T)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	row := h.build(envelope, typed)
	row.EventID = envelope.EventID
	row.EventType = string(envelope.EventType)
	row.OccurredAt = envelope.OccurredAt.UTC()
	if envelope.Actor != nil && row.ActorID == nil {
		row.ActorID = strPtr(envelope.Actor.UserID.String())
	}
	if envelope.Actor != nil && envelope.Actor.Role != "" {
		row.ActorRole = strPtr(string(envelope.Actor.Role))
	}
	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return err
	}
	row.Payload = encoded
	return h.writer.InsertSealEvent(ctx, row)
}

func entry[T any](w Writer, build func(types.Envelope, *T) types.SealEventRow) handlerEntry {
	return handlerEntry{
		factory: func() any { return new(T) },
		handler: rowHandler[T]{writer: w, build: build},
	}
}
