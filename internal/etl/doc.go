// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package etl ingests the spotify-tracks dataset into the catalog tables.

The pipeline is Fetch, Parse, Normalize and Loader.LoadDataset:

  - Fetch opens a local path, an http(s) URL or an hf://datasets/... reference,
    decompressing .gz sources.
  - Parse drops the unnamed index column, rows with empty fields and repeated
    track ids (first row wins), then numbers the remaining rows from 0.
  - Normalize derives albums and artists (1-based ids in first-seen order),
    splitting the artists field on ";", plus the track/artist links.

Runner.Run skips ingestion when the catalog already has tracks unless forced.
*/
package etl
