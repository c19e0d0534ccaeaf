// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package models

// Track is one row of the tracks table: a track's audio attributes plus its
// album reference. Artists live in TrackArtist rows.
//
// Idx is the zero-based position of the row after cleaning and de-duplication.
// It is an identifier, not a feature, and is never fed to the model.
type Track struct {
	TrackID          string  `json:"track_id"`
	Idx              int     `json:"idx"`
	TrackName        string  `json:"track_name"`
	AlbumID          int     `json:"album_id"`
	Popularity       float64 `json:"popularity"`
	DurationMS       float64 `json:"duration_ms"`
	Explicit         bool    `json:"explicit"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             float64 `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
	TrackGenre       string  `json:"track_genre"`
}

// Album is a distinct album name. IDs start at 1 in first-seen order.
type Album struct {
	AlbumID int    `json:"album_id"`
	Album   string `json:"album"`
}

// Artist is a distinct artist name. IDs start at 1 in first-seen order.
type Artist struct {
	ArtistID int    `json:"artist_id"`
	Artist   string `json:"artist"`
}

// TrackArtist links a track to one of its credited artists. Position keeps
// the credit order from the source row.
type TrackArtist struct {
	TrackID  string `json:"track_id"`
	ArtistID int    `json:"artist_id"`
	Position int    `json:"position"`
}

// Dataset is the normalized catalog produced by ingestion and written in a
// single transaction.
type Dataset struct {
	Tracks       []Track
	Albums       []Album
	Artists      []Artist
	TrackArtists []TrackArtist
}

// Counts returns row counts keyed by table name.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"tracks":         len(d.Tracks),
		"albums":         len(d.Albums),
		"artists":        len(d.Artists),
		"tracks_artists": len(d.TrackArtists),
	}
}

// TrackSummary is the display form of a track: its name with the credited
// artists joined by ", ".
type TrackSummary struct {
	TrackID     string `json:"track_id"`
	TrackName   string `json:"track_name"`
	Artists     string `json:"artists"`
	TrackArtist string `json:"track_artist"`
}

// NewTrackSummary builds a summary and derives the "name by artists" label.
func NewTrackSummary(trackID, trackName, artists string) TrackSummary {
	return TrackSummary{
		TrackID:     trackID,
		TrackName:   trackName,
		Artists:     artists,
		TrackArtist: trackName + " by " + artists,
	}
}

// Link is the playable reference returned by the external catalog.
type Link struct {
	TrackID  string `json:"track_id"`
	URI      string `json:"uri"`
	ImageURL string `json:"image_url,omitempty"`
}
