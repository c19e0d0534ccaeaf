// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/metrics"
	"github.com/tomtom215/tracksim/internal/recommend"
)

// ErrBusClosed is returned by operations on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// correlationIDKey is the message metadata key carrying the correlation id.
const correlationIDKey = "correlation_id"

// Bus is an in-process publish/subscribe bus on a Watermill GoChannel.
// Messages published with no subscriber on the topic are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *logging.EventLogger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. A nil logger routes Watermill's own logs through the
// zerolog slog adapter.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger("events"))
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
			Persistent:          false,
		}, logger),
		log: logging.NewEventLogger(),
	}
}

// PublishRetrain requests a model rebuild and returns the event id.
func (b *Bus) PublishRetrain(ctx context.Context, reason string) (string, error) {
	return b.PublishRetrainWith(ctx, RetrainRequest{Reason: reason})
}

// PublishRetrainWith publishes req, filling in the id and timestamp.
func (b *Bus) PublishRetrainWith(ctx context.Context, req RetrainRequest) (string, error) {
	req.SchemaVersion = SchemaVersion
	req.EventID = uuid.New().String()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("validate retrain request: %w", err)
	}
	if err := b.publish(ctx, TopicRetrain, req.EventID, &req); err != nil {
		return "", err
	}
	return req.EventID, nil
}

// SubscribeRetrain delivers retrain requests until ctx is cancelled or the
// bus closes.
func (b *Bus) SubscribeRetrain(ctx context.Context) (<-chan RetrainRequest, error) {
	return subscribe(ctx, b, TopicRetrain, func(r *RetrainRequest) (string, error) {
		return r.EventID, r.Validate()
	})
}

// PublishModelSwapped announces that status now describes the serving model.
func (b *Bus) PublishModelSwapped(ctx context.Context, status *recommend.Status) error {
	ev := ModelSwapped{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		ModelVersion:  status.ModelVersion,
		TrackCount:    status.TrackCount,
		Dimensions:    status.Dimensions,
		LeafSize:      status.LeafSize,
		TrainedAt:     status.LastTrainedAt,
		SwappedAt:     time.Now().UTC(),
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("validate model swapped event: %w", err)
	}
	return b.publish(ctx, TopicModelSwapped, ev.EventID, &ev)
}

// SubscribeModelSwapped delivers model swap notifications.
func (b *Bus) SubscribeModelSwapped(ctx context.Context) (<-chan ModelSwapped, error) {
	return subscribe(ctx, b, TopicModelSwapped, func(m *ModelSwapped) (string, error) {
		return m.EventID, m.Validate()
	})
}

// Close stops all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

func (b *Bus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Bus) publish(ctx context.Context, topic, eventID string, payload any) error {
	if b.isClosed() {
		return ErrBusClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(eventID, data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(correlationIDKey, id)
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	b.log.LogEventPublished(ctx, eventID, topic)
	return nil
}

// subscribe decodes messages on topic into T. Messages that fail to decode or
// validate are logged, counted and acked so they are not redelivered.
func subscribe[T any](ctx context.Context, b *Bus, topic string, check func(*T) (string, error)) (<-chan T, error) {
	if b.isClosed() {
		return nil, ErrBusClosed
	}
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	b.log.LogSubscriptionStarted(topic)

	out := make(chan T)
	go func() {
		defer close(out)
		defer b.log.LogSubscriptionStopped(topic)

		for msg := range messages {
			msgCtx := ctx
			if id := msg.Metadata.Get(correlationIDKey); id != "" {
				msgCtx = logging.ContextWithCorrelationID(ctx, id)
			}

			var ev T
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				metrics.RecordEventConsumed(topic, err)
				b.log.LogEventFailed(msgCtx, msg.UUID, err)
				msg.Ack()
				continue
			}
			eventID, err := check(&ev)
			if err != nil {
				metrics.RecordEventConsumed(topic, err)
				b.log.LogEventFailed(msgCtx, msg.UUID, err)
				msg.Ack()
				continue
			}
			b.log.LogEventReceived(msgCtx, eventID, topic)

			select {
			case out <- ev:
				metrics.RecordEventConsumed(topic, nil)
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}
