// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package logging provides centralized zerolog-based structured logging for Tracksim.
//
// JSON output is used in production and console output in development. The
// global logger is configured once from the LOG_* settings and components
// derive their own logger with a "component" field.
//
// # Quick Start
//
//	import "github.com/tomtom215/tracksim/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Int("tracks", n).Msg("Model trained")
//	logging.Error().Err(err).Msg("Catalog request failed")
//
//	// Context-aware logging carries request and correlation ids
//	logging.Ctx(ctx).Info().Msg("Processing recommend request")
//
// # Configuration
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Specialized Loggers
//
// EventLogger covers the in-process retrain bus and SecurityLogger records
// admin endpoint access with credentials masked.
//
// # slog Adapter
//
// NewSlogLogger returns a *slog.Logger backed by zerolog for libraries that
// log through slog, such as the suture supervisor and watermill.
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
package logging
