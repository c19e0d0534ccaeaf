// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package etl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// huggingFacePrefix is the hf:// dataset shorthand used by the dataset card.
const huggingFacePrefix = "hf://datasets/"

// ResolveSource expands hf://datasets/<owner>/<name>/<file> into the
// corresponding Hugging Face download URL. Other sources are returned as-is.
func ResolveSource(source string) (string, error) {
	if !strings.HasPrefix(source, huggingFacePrefix) {
		return source, nil
	}
	parts := strings.SplitN(strings.TrimPrefix(source, huggingFacePrefix), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid dataset reference %q: want hf://datasets/<owner>/<name>/<file>", source)
	}
	return fmt.Sprintf("https://huggingface.co/datasets/%s/%s/resolve/main/%s", parts[0], parts[1], parts[2]), nil
}

// Fetch opens source for reading. Sources are local paths, http(s) URLs or
// hf:// dataset references. Names ending in .gz are decompressed.
func Fetch(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	resolved, err := ResolveSource(source)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	if strings.HasPrefix(resolved, "http://") || strings.HasPrefix(resolved, "https://") {
		body, err = fetchHTTP(ctx, client, resolved)
	} else {
		body, err = os.Open(resolved) //nolint:gosec // operator-supplied dataset path
	}
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(resolved), ".gz") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			closeQuietly(body)
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return &gzipReadCloser{Reader: zr, body: body}, nil
	}
	return body, nil
}

func fetchHTTP(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		closeQuietly(resp.Body)
		return nil, fmt.Errorf("download dataset: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return zerr
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
