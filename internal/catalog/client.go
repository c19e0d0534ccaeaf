// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/metrics"
	"github.com/tomtom215/tracksim/internal/models"
)

const (
	// MaxIDsPerRequest is the batch limit of GET /v1/tracks.
	MaxIDsPerRequest = 50

	// fetchConcurrency bounds parallel batch requests.
	fetchConcurrency = 4

	// tokenExpiryMargin renews the token before the catalog expires it.
	tokenExpiryMargin = 30 * time.Second

	// maxResponseBytes caps the size of a decoded response body.
	maxResponseBytes = 8 << 20
)

// Client talks to the Spotify Web API with client-credentials auth. It is
// safe for concurrent use.
type Client struct {
	cfg     config.CatalogConfig
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	cache   *LinkCache

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a client. cache may be nil. It returns ErrDisabled when the
// credentials are not configured.
func NewClient(cfg *config.CatalogConfig, cache *LinkCache, httpClient *http.Client) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     *cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cb:      newBreaker(),
		cache:   cache,
	}, nil
}

// tokenResponse is the accounts service reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, requesting a new one when it is
// missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	endpoint := strings.TrimSuffix(c.cfg.AccountsURL, "/") + "/api/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer closeBody(resp)
	metrics.RecordCatalogRequest("token", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return "", ErrUnauthorized
		}
		return "", &APIError{StatusCode: resp.StatusCode}
	}

	var tr tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	logging.Debug().Int("expires_in", tr.ExpiresIn).Msg("Obtained catalog access token")
	return c.token, nil
}

// invalidateToken drops the cached token if it is still the one that failed.
func (c *Client) invalidateToken(failed string) {
	c.tokenMu.Lock()
	if c.token == failed {
		c.token = ""
	}
	c.tokenMu.Unlock()
}

// get issues GET path against the API, decoding JSON into out. It reauthorizes
// once on 401, honors Retry-After on 429 and retries server errors with
// exponential backoff, both bounded by MaxRetries.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	reauthorized := false

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		body, err := c.cb.Execute(func() ([]byte, error) {
			return c.doGet(ctx, endpoint, token, path, query)
		})
		recordBreakerResult(c.cb, err)
		if err == nil {
			return json.Unmarshal(body, out)
		}

		var apiErr *APIError
		isAPIErr := errors.As(err, &apiErr)
		switch {
		case isAPIErr && apiErr.StatusCode == http.StatusUnauthorized:
			if reauthorized {
				return ErrUnauthorized
			}
			reauthorized = true
			c.invalidateToken(token)
			metrics.RecordCatalogRetry("unauthorized")
			continue

		case isAPIErr && apiErr.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.cfg.MaxRetries {
				return ErrRateLimited
			}
			wait := retryAfter(apiErr)
			metrics.RecordCatalogRetry("rate_limited")
			logging.Warn().Dur("retry_after", wait).Msg("Catalog rate limited, waiting")
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue

		case isAPIErr && apiErr.StatusCode < 500:
			return err

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		}

		// Server errors, transport failures and an open breaker.
		if attempt >= c.cfg.MaxRetries {
			return err
		}
		metrics.RecordCatalogRetry("server_error")
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return err
		}
	}
}

func retryAfter(apiErr *APIError) time.Duration {
	if apiErr.retryAfter > 0 {
		return apiErr.retryAfter
	}
	return time.Second
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// spotifyError is the error body of the Web API.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// doGet performs one HTTP attempt.
func (c *Client) doGet(ctx context.Context, endpoint, token, path string, query url.Values) ([]byte, error) {
	u := strings.TrimSuffix(c.cfg.APIURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer closeBody(resp)
	metrics.RecordCatalogRequest(endpoint, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var se spotifyError
		if json.Unmarshal(body, &se) == nil {
			apiErr.Message = se.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				apiErr.retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, apiErr
	}
	return body, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

// trackObject is the subset of the Web API track object used for links.
type trackObject struct {
	ID    string `json:"id"`
	URI   string `json:"uri"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (t *trackObject) link() models.Link {
	l := models.Link{TrackID: t.ID, URI: t.URI}
	if len(t.Album.Images) > 0 {
		l.ImageURL = t.Album.Images[0].URL
	}
	return l
}

// fetchBatch resolves up to MaxIDsPerRequest ids. A single id uses the
// single-track endpoint.
func (c *Client) fetchBatch(ctx context.Context, ids []string) (map[string]models.Link, []string, error) {
	found := make(map[string]models.Link, len(ids))

	if len(ids) == 1 {
		var t trackObject
		err := c.get(ctx, "track", "/v1/tracks/"+url.PathEscape(ids[0]), nil, &t)
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusBadRequest) {
			return found, ids, nil
		}
		if err != nil {
			return nil, nil, err
		}
		found[ids[0]] = t.link()
		return found, nil, nil
	}

	var resp struct {
		Tracks []*trackObject `json:"tracks"`
	}
	if err := c.get(ctx, "tracks", "/v1/tracks", url.Values{"ids": {strings.Join(ids, ",")}}, &resp); err != nil {
		return nil, nil, err
	}

	// Results are positional; unknown ids come back as null.
	var missing []string
	for i, id := range ids {
		if i < len(resp.Tracks) && resp.Tracks[i] != nil {
			l := resp.Tracks[i].link()
			l.TrackID = id
			found[id] = l
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// Links resolves playable links for ids. Ids the catalog does not know are
// absent from the result. Cached entries are served without API calls.
func (c *Client) Links(ctx context.Context, ids []string) (map[string]models.Link, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	links := make(map[string]models.Link, len(unique))
	pending := unique
	if c.cache != nil {
		cached, misses, err := c.cache.Get(unique)
		if err != nil {
			logging.Warn().Err(err).Msg("Link cache read failed, querying catalog")
		} else {
			links = cached
			pending = misses
		}
	}
	metrics.RecordCatalogCache(len(unique)-len(pending), len(pending))
	if len(pending) == 0 {
		return links, nil
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string]models.Link, len(pending))
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for start := 0; start < len(pending); start += MaxIDsPerRequest {
		chunk := pending[start:min(start+MaxIDsPerRequest, len(pending))]
		g.Go(func() error {
			found, notFound, err := c.fetchBatch(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, l := range found {
				fetched[id] = l
			}
			missing = append(missing, notFound...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch catalog links: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Put(fetched, missing); err != nil {
			logging.Warn().Err(err).Msg("Link cache write failed")
		}
	}
	for id, l := range fetched {
		links[id] = l
	}
	return links, nil
}

// Track resolves a single track link.
func (c *Client) Track(ctx context.Context, id string) (models.Link, error) {
	links, err := c.Links(ctx, []string{id})
	if err != nil {
		return models.Link{}, err
	}
	l, ok := links[id]
	if !ok {
		return models.Link{}, ErrTrackNotFound
	}
	return l, nil
}
