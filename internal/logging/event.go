// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// EventLogger provides specialized logging for the in-process event bus
// with domain-specific methods for publish and delivery.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger creates a logger configured for event handling using the
// global logger.
func NewEventLogger() *EventLogger {
	return &EventLogger{
		logger: With().Str("component", "events").Logger(),
	}
}

// NewEventLoggerWithLogger creates an EventLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Info logs an info message with key/value pairs.
func (e *EventLogger) Info(msg string, fields ...interface{}) {
	addFieldPairs(e.logger.Info(), fields).Msg(msg)
}

// Debug logs a debug message with key/value pairs.
func (e *EventLogger) Debug(msg string, fields ...interface{}) {
	addFieldPairs(e.logger.Debug(), fields).Msg(msg)
}

// loggerWithContext adds request and correlation ids found in ctx.
func (e *EventLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	logCtx := e.logger.With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	return logCtx.Logger()
}

// LogEventPublished logs when an event is published to a topic.
func (e *EventLogger) LogEventPublished(ctx context.Context, eventID, topic string) {
	logger := e.loggerWithContext(ctx)
	logger.Debug().Str("event_id", eventID).Str("topic", topic).Msg("event published")
}

// LogEventReceived logs when a subscriber takes delivery of an event.
func (e *EventLogger) LogEventReceived(ctx context.Context, eventID, topic string) {
	logger := e.loggerWithContext(ctx)
	logger.Debug().Str("event_id", eventID).Str("topic", topic).Msg("event received")
}

// LogEventFailed logs an event that could not be decoded or handled.
func (e *EventLogger) LogEventFailed(ctx context.Context, eventID string, err error) {
	logger := e.loggerWithContext(ctx)
	logger.Error().Str("event_id", eventID).Err(err).Msg("event processing failed")
}

// LogSubscriptionStarted logs when a subscription is started.
func (e *EventLogger) LogSubscriptionStarted(topic string) {
	e.Info("subscription started", "topic", topic)
}

// LogSubscriptionStopped logs when a subscription is stopped.
func (e *EventLogger) LogSubscriptionStopped(topic string) {
	e.Info("subscription stopped", "topic", topic)
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, fields[i+1])
	}
	return e
}
