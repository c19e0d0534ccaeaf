// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package models defines data structures shared between ingestion, storage and
the HTTP layer.

Catalog Models:

  - Track: one row of the tracks table (audio attributes, album reference)
  - Album, Artist: distinct names with 1-based ids in first-seen order
  - TrackArtist: track to artist association
  - Dataset: the four tables produced by ingestion
  - TrackSummary: display form with the "name by artists" label
  - Link: playable URI and cover image from the external catalog

API Models:

  - APIResponse, APIError, Metadata: the standard JSON envelope
  - RecommendRequest, RecommendResponse, RecommendedTrack
  - HealthStatus
*/
package models
