// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata, reports fields by their JSON names and registers the custom
// "trackid" tag for catalog track identifiers.
//
// Struct returns every failed rule, which the API reports as VALIDATION_ERROR:
//
//	type RecommendRequest struct {
//	    IDs   []string `json:"ids" validate:"required,min=1,dive,trackid"`
//	    NRecs int      `json:"n_recs" validate:"required,min=1"`
//	}
//
//	if errs := validation.Struct(&req); errs != nil {
//	    // errs.Error() is the message, errs.Details() lists the fields
//	}
package validation
