// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package events is the in-process event bus.
//
// It carries retrain requests from the admin API to the recommend service and
// announces model swaps. Events are JSON payloads on a Watermill GoChannel,
// so delivery is best-effort and limited to the running process.
package events
