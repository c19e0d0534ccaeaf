// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// requiredColumns are the CSV headers the spotify-tracks layout must provide.
var requiredColumns = []string{
	"track_id", "artists", "album_name", "track_name", "popularity", "duration_ms",
	"explicit", "danceability", "energy", "key", "loudness", "mode", "speechiness",
	"acousticness", "instrumentalness", "liveness", "valence", "tempo",
	"time_signature", "track_genre",
}

// ParseError reports a malformed value in the source CSV.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Parse reads the spotify-tracks CSV layout. Unknown columns, including the
// unnamed leading index column, are ignored. Rows with any empty required
// field are dropped, and only the first row of each track_id is kept. The
// surviving rows are numbered from 0 in order.
func Parse(r io.Reader) ([]Record, *Stats, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" || strings.HasPrefix(h, "Unnamed:") {
			continue
		}
		pos[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	stats := &Stats{}
	seen := make(map[string]bool)
	var records []Record

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		stats.SourceRows++
		line, _ := cr.FieldPos(0)

		if hasEmptyField(row, pos) {
			stats.DroppedIncomplete++
			continue
		}

		rec, err := parseRecord(row, pos, line)
		if err != nil {
			return nil, nil, err
		}
		if seen[rec.TrackID] {
			stats.DroppedDuplicates++
			continue
		}
		seen[rec.TrackID] = true

		rec.Idx = len(records)
		records = append(records, rec)
	}

	return records, stats, nil
}

func hasEmptyField(row []string, pos map[string]int) bool {
	for _, c := range requiredColumns {
		if strings.TrimSpace(row[pos[c]]) == "" {
			return true
		}
	}
	return false
}

// fieldParser accumulates the first conversion error of a row.
type fieldParser struct {
	row  []string
	pos  map[string]int
	line int
	err  error
}

func (p *fieldParser) str(col string) string {
	return p.row[p.pos[col]]
}

func (p *fieldParser) float(col string) float64 {
	v := p.str(col)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil && p.err == nil {
		p.err = &ParseError{Line: p.line, Column: col, Value: v, Err: err}
	}
	return f
}

// int accepts "4" as well as "4.0", which pandas writes for integer columns
// that once held NaN.
func (p *fieldParser) int(col string) int {
	f := p.float(col)
	if p.err == nil && f != float64(int(f)) {
		p.err = &ParseError{Line: p.line, Column: col, Value: p.str(col), Err: errors.New("not an integer")}
	}
	return int(f)
}

func (p *fieldParser) bool(col string) bool {
	v := p.str(col)
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil && p.err == nil {
		p.err = &ParseError{Line: p.line, Column: col, Value: v, Err: err}
	}
	return b
}

func parseRecord(row []string, pos map[string]int, line int) (Record, error) {
	p := &fieldParser{row: row, pos: pos, line: line}
	rec := Record{
		TrackID:          p.str("track_id"),
		Artists:          p.str("artists"),
		AlbumName:        p.str("album_name"),
		TrackName:        p.str("track_name"),
		Popularity:       p.float("popularity"),
		DurationMS:       p.float("duration_ms"),
		Explicit:         p.bool("explicit"),
		Danceability:     p.float("danceability"),
		Energy:           p.float("energy"),
		Key:              p.int("key"),
		Loudness:         p.float("loudness"),
		Mode:             p.float("mode"),
		Speechiness:      p.float("speechiness"),
		Acousticness:     p.float("acousticness"),
		Instrumentalness: p.float("instrumentalness"),
		Liveness:         p.float("liveness"),
		Valence:          p.float("valence"),
		Tempo:            p.float("tempo"),
		TimeSignature:    p.int("time_signature"),
		TrackGenre:       p.str("track_genre"),
	}
	return rec, p.err
}
