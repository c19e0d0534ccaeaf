// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Command tracksimctl runs one-shot Tracksim operations against the same
// database and model store the server uses: dataset ingestion, training,
// recommendation queries and model status.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	rootCmd := NewRootCmd(version, openEnvironment)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}
