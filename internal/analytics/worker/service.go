package worker

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/internal/analytics/router"
	"github.com/angelmondragon/sealcard-backend/internal/analytics/types"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

// ConsumerName scopes the analytics idempotency claims.
const ConsumerName = "analytics"

// Handler processes one decoded loyalty event.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type claimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Service consumes the analytics subscription. Each event id is handled at
// most once per idempotency TTL; a failed handler clears its marker and
// nacks so Pub/Sub redelivers.
type Service struct {
	subscription receiver
	handler      Handler
	manager      claimer
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, manager claimer, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	return newService(subscription, handler, manager, logg)
}

func newService(subscription receiver, handler Handler, manager claimer, logg *logger.Logger) (*Service, error) {
	switch {
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case manager == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		manager:      manager,
		logg:         logg,
	}, nil
}

// outcome is what to tell Pub/Sub about a message.
type outcome int

const (
	ack outcome = iota
	nack
)

// Run blocks until ctx is canceled or the subscription fails.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := types.Decode(msg.Data, msg.Attributes)
	if err != nil {
		// malformed messages will never decode; drop them instead of looping
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid analytics envelope")
		return ack
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
		"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		return ack
	}

	claimed, err := s.manager.Claim(logCtx, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency claim failed", err)
		return nack
	}
	if !claimed {
		s.logg.Debug(logCtx, "event already processed")
		return ack
	}

	if err := s.handler.Handle(logCtx, envelope); err != nil {
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(logCtx, "no analytics handler for event type")
			return ack
		}
		s.logg.Error(logCtx, "handler error", err)
		if relErr := s.manager.Release(logCtx, eventID); relErr != nil {
			s.logg.Error(logCtx, "failed to release idempotency claim", relErr)
		}
		return nack
	}

	s.logg.Info(logCtx, "analytics event handled")
	return ack
}
