// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package etl

import (
	"strings"

	"github.com/tomtom215/tracksim/internal/models"
)

// ArtistSeparator splits the artists field into individual credits.
const ArtistSeparator = ";"

// Normalize splits cleaned records into the four catalog tables. Albums and
// artists get 1-based ids in first-seen order; tracks keep their record order.
func Normalize(records []Record) *models.Dataset {
	ds := &models.Dataset{
		Tracks: make([]models.Track, 0, len(records)),
	}

	albumIDs := make(map[string]int)
	artistIDs := make(map[string]int)

	for i := range records {
		rec := &records[i]

		albumID, ok := albumIDs[rec.AlbumName]
		if !ok {
			albumID = len(ds.Albums) + 1
			albumIDs[rec.AlbumName] = albumID
			ds.Albums = append(ds.Albums, models.Album{AlbumID: albumID, Album: rec.AlbumName})
		}

		for pos, name := range strings.Split(rec.Artists, ArtistSeparator) {
			artistID, ok := artistIDs[name]
			if !ok {
				artistID = len(ds.Artists) + 1
				artistIDs[name] = artistID
				ds.Artists = append(ds.Artists, models.Artist{ArtistID: artistID, Artist: name})
			}
			ds.TrackArtists = append(ds.TrackArtists, models.TrackArtist{
				TrackID:  rec.TrackID,
				ArtistID: artistID,
				Position: pos,
			})
		}

		ds.Tracks = append(ds.Tracks, models.Track{
			TrackID:          rec.TrackID,
			Idx:              rec.Idx,
			TrackName:        rec.TrackName,
			AlbumID:          albumID,
			Popularity:       rec.Popularity,
			DurationMS:       rec.DurationMS,
			Explicit:         rec.Explicit,
			Danceability:     rec.Danceability,
			Energy:           rec.Energy,
			Key:              rec.Key,
			Loudness:         rec.Loudness,
			Mode:             rec.Mode,
			Speechiness:      rec.Speechiness,
			Acousticness:     rec.Acousticness,
			Instrumentalness: rec.Instrumentalness,
			Liveness:         rec.Liveness,
			Valence:          rec.Valence,
			Tempo:            rec.Tempo,
			TimeSignature:    rec.TimeSignature,
			TrackGenre:       rec.TrackGenre,
		})
	}

	return ds
}
