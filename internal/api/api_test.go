// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/events"
	"github.com/tomtom215/tracksim/internal/models"
	"github.com/tomtom215/tracksim/internal/recommend"
)

type fakeEngine struct {
	results []recommend.Result
	err     error
	state   recommend.State

	gotIDs   []string
	gotNRecs int
}

func (f *fakeEngine) Recommend(_ context.Context, ids []string, nRecs int) ([]recommend.Result, error) {
	f.gotIDs = ids
	f.gotNRecs = nRecs
	return f.results, f.err
}

func (f *fakeEngine) Status() recommend.Status {
	return recommend.Status{State: f.state.String(), TrackCount: 4, Dimensions: 2, LeafSize: 7}
}

type fakeStore struct {
	summaries map[string]models.TrackSummary
	err       error
	pingErr   error

	gotQuery string
	gotLimit int
}

func (f *fakeStore) SummariesByID(_ context.Context, ids []string) (map[string]models.TrackSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.TrackSummary)
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeStore) Autocomplete(_ context.Context, q string, limit int) ([]models.TrackSummary, error) {
	f.gotQuery = q
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []models.TrackSummary
	for _, s := range f.summaries {
		if strings.Contains(strings.ToLower(s.TrackName), strings.ToLower(q)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

type fakeLinks struct {
	links map[string]models.Link
	err   error
}

func (f *fakeLinks) Links(_ context.Context, ids []string) (map[string]models.Link, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Link)
	for _, id := range ids {
		if l, ok := f.links[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	reqs []events.RetrainRequest
	err  error
}

func (f *fakePublisher) PublishRetrainWith(_ context.Context, req events.RetrainRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.reqs = append(f.reqs, req)
	return "evt-1", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Timeout:     5 * time.Second,
			Environment: "development",
		},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
			AdminToken:        "s3cret-admin-token",
		},
		Recommend: config.RecommendConfig{
			MaxQueryIDs:        3,
			MaxRecommendations: 20,
		},
	}
}

func testSummaries() map[string]models.TrackSummary {
	return map[string]models.TrackSummary{
		"a1": models.NewTrackSummary("a1", "Comedy", "Gen Hoshino"),
		"b2": models.NewTrackSummary("b2", "Ghost", "Ben Woodward"),
		"c3": models.NewTrackSummary("c3", "To Begin Again", "Ingrid Michaelson, ZAYN"),
		"d4": models.NewTrackSummary("d4", "Hold On", "Chord Overstreet"),
	}
}

type testServer struct {
	engine    *fakeEngine
	store     *fakeStore
	links     *fakeLinks
	publisher *fakePublisher
	handler   http.Handler
}

type serverOption func(*testServer, *config.Config, *Deps)

func withLinks(l *fakeLinks) serverOption {
	return func(ts *testServer, _ *config.Config, d *Deps) {
		ts.links = l
		d.Links = l
	}
}

func withoutEvents() serverOption {
	return func(_ *testServer, _ *config.Config, d *Deps) {
		d.Events = nil
	}
}

func withConfig(fn func(*config.Config)) serverOption {
	return func(_ *testServer, cfg *config.Config, _ *Deps) {
		fn(cfg)
	}
}

func newTestServer(t *testing.T, engine *fakeEngine, opts ...serverOption) *testServer {
	t.Helper()

	cfg := testConfig()
	ts := &testServer{
		engine:    engine,
		store:     &fakeStore{summaries: testSummaries()},
		publisher: &fakePublisher{},
	}
	deps := Deps{Engine: ts.engine, Store: ts.store, Events: ts.publisher}
	for _, opt := range opts {
		opt(ts, cfg, &deps)
	}

	h := NewHandler(cfg, deps)
	router := NewRouter(h, NewChiMiddleware(ChiMiddlewareConfigFrom(&cfg.Security)))
	ts.handler = router.SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func readyEngine() *fakeEngine {
	return &fakeEngine{
		state: recommend.StateReady,
		results: []recommend.Result{
			{ID: "a1", Found: true, Neighbors: []recommend.Neighbor{{ID: "b2", Distance: 0.1}, {ID: "c3", Distance: 0.2}}},
			{ID: "zz", Found: false, Neighbors: []recommend.Neighbor{}},
			{ID: "d4", Found: true, Neighbors: []recommend.Neighbor{{ID: "c3", Distance: 0.05}, {ID: "a1", Distance: 0.3}}},
		},
	}
}

func trackIDs(tracks []models.RecommendedTrack) []string {
	ids := make([]string, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.TrackID
	}
	return ids
}

func TestRecommendFlattensNeighbors(t *testing.T) {
	ts := newTestServer(t, readyEngine())

	rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1","zz","d4"],"n_recs":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, env.Metadata.RequestID)

	var resp models.RecommendResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{"b2", "c3", "a1"}, trackIDs(resp.Tracks))
	assert.Equal(t, []string{"zz"}, resp.NotFound)
	assert.Equal(t, "Ghost by Ben Woodward", resp.Tracks[0].TrackArtist)
	assert.Empty(t, resp.Tracks[0].URI)

	assert.Equal(t, []string{"a1", "zz", "d4"}, ts.engine.gotIDs)
	assert.Equal(t, 2, ts.engine.gotNRecs)
}

func TestRecommendJoinsCatalogLinks(t *testing.T) {
	links := &fakeLinks{links: map[string]models.Link{
		"c3": {TrackID: "c3", URI: "spotify:track:c3", ImageURL: "https://i.scdn.co/image/c3"},
		"a1": {TrackID: "a1", URI: "spotify:track:a1"},
	}}
	ts := newTestServer(t, readyEngine(), withLinks(links))

	rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1","d4"],"n_recs":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.RecommendResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))

	// b2 has no link and is dropped
	require.Equal(t, []string{"c3", "a1"}, trackIDs(resp.Tracks))
	assert.Equal(t, "spotify:track:c3", resp.Tracks[0].URI)
	assert.Equal(t, "https://i.scdn.co/image/c3", resp.Tracks[0].ImageURL)
}

func TestRecommendCatalogFailureDegrades(t *testing.T) {
	ts := newTestServer(t, readyEngine(), withLinks(&fakeLinks{err: errors.New("catalog down")}))

	rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1"],"n_recs":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.RecommendResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, []string{"b2", "c3", "a1"}, trackIDs(resp.Tracks))
}

func TestRecommendEngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not ready", &recommend.ModelNotReadyError{State: recommend.StateUninitialized}, http.StatusServiceUnavailable, CodeModelNotReady},
		{"invalid argument", &recommend.InvalidArgumentError{Field: "n_recs", Reason: "must be positive"}, http.StatusBadRequest, CodeInvalidArgument},
		{"insufficient", recommend.ErrInsufficientNeighbors, http.StatusUnprocessableEntity, CodeInsufficientNeighbors},
		{"wrapped insufficient", errors.Join(errors.New("query"), recommend.ErrInsufficientNeighbors), http.StatusUnprocessableEntity, CodeInsufficientNeighbors},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeEngine{err: tt.err})
			rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1"],"n_recs":1}`)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			env := decodeEnvelope(t, rec)
			assert.Equal(t, "error", env.Status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRecommendValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"malformed json", `{"ids":`},
		{"unknown field", `{"ids":["a1"],"n_recs":1,"extra":true}`},
		{"missing ids", `{"n_recs":1}`},
		{"empty ids", `{"ids":[],"n_recs":1}`},
		{"zero n_recs", `{"ids":["a1"],"n_recs":0}`},
		{"negative n_recs", `{"ids":["a1"],"n_recs":-3}`},
		{"bad id", `{"ids":["a1; DROP TABLE"],"n_recs":1}`},
		{"too many ids", `{"ids":["a1","b2","c3","d4"],"n_recs":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := readyEngine()
			ts := newTestServer(t, engine)
			rec := ts.do(t, http.MethodPost, "/api/v1/recommend", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodeValidation, env.Error.Code)
			assert.Nil(t, engine.gotIDs, "engine must not be called")
		})
	}
}

func TestRecommendLargeNRecsReachesEngine(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("%w: n_recs=500, indexed tracks=4", recommend.ErrInsufficientNeighbors)}
	ts := newTestServer(t, engine)

	rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1"],"n_recs":500}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, 500, engine.gotNRecs)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInsufficientNeighbors, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "kdtree")
}

func TestRecommendDatabaseError(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	ts.store.err = errors.New("duckdb closed")

	rec := ts.do(t, http.MethodPost, "/api/v1/recommend", `{"ids":["a1"],"n_recs":2}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeDatabase, decodeEnvelope(t, rec).Error.Code)
	assert.NotContains(t, rec.Body.String(), "duckdb closed")
}

func TestAutocomplete(t *testing.T) {
	ts := newTestServer(t, readyEngine())

	rec := ts.do(t, http.MethodGet, "/api/v1/autocomplete?q=gho", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tracks []models.TrackSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "b2", tracks[0].TrackID)
	assert.Equal(t, defaultAutocompleteLimit, ts.store.gotLimit)

	rec = ts.do(t, http.MethodGet, "/api/v1/autocomplete?q=zzz&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))
	assert.Equal(t, 5, ts.store.gotLimit)
}

func TestAutocompleteValidation(t *testing.T) {
	ts := newTestServer(t, readyEngine())

	for _, path := range []string{
		"/api/v1/autocomplete",
		"/api/v1/autocomplete?q=%20%20",
		"/api/v1/autocomplete?q=a&limit=0",
		"/api/v1/autocomplete?q=a&limit=51",
		"/api/v1/autocomplete?q=a&limit=ten",
		"/api/v1/autocomplete?q=" + strings.Repeat("x", maxAutocompleteQuery+1),
	} {
		rec := ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	ts.store.err = errors.New("io error")
	rec := ts.do(t, http.MethodGet, "/api/v1/autocomplete?q=a", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPITest(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	rec := ts.do(t, http.MethodGet, "/api/v1/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"api_status":"works fine"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestModelStatus(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	rec := ts.do(t, http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status recommend.Status
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &status))
	assert.Equal(t, "ready", status.State)
	assert.Equal(t, 4, status.TrackCount)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, readyEngine(), withLinks(&fakeLinks{}))

	rec := ts.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var health models.HealthStatus
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.DatabaseConnected)
	assert.True(t, health.CatalogEnabled)
	assert.Equal(t, "ready", health.ModelState)

	ts.store.pingErr = errors.New("down")
	rec = ts.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &health))
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.DatabaseConnected)
}

func TestHealthReady(t *testing.T) {
	engine := &fakeEngine{state: recommend.StateTrained}
	ts := newTestServer(t, engine)

	rec := ts.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeModelNotReady, decodeEnvelope(t, rec).Error.Code)

	engine.state = recommend.StateReady
	rec = ts.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.store.pingErr = errors.New("down")
	rec = ts.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRetrainRequiresToken(t *testing.T) {
	ts := newTestServer(t, readyEngine())

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.publisher.reqs)
}

func TestAdminRetrain(t *testing.T) {
	ts := newTestServer(t, readyEngine())

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "",
		"Authorization", "Bearer s3cret-admin-token")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted RetrainAccepted
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &accepted))
	assert.Equal(t, "evt-1", accepted.EventID)
	assert.Equal(t, "admin request", accepted.Reason)

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/retrain",
		`{"reason":"new dataset","dimensions":4,"leaf_size":12}`,
		AdminTokenHeader, "s3cret-admin-token")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, ts.publisher.reqs, 2)
	got := ts.publisher.reqs[1]
	assert.Equal(t, "new dataset", got.Reason)
	assert.Equal(t, 4, got.Dimensions)
	assert.Equal(t, 12, got.LeafSize)
}

func TestAdminRetrainErrors(t *testing.T) {
	auth := []string{"Authorization", "Bearer s3cret-admin-token"}

	t.Run("invalid body", func(t *testing.T) {
		ts := newTestServer(t, readyEngine())
		rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", `{"dimensions":-1}`, auth...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("publish failure", func(t *testing.T) {
		ts := newTestServer(t, readyEngine())
		ts.publisher.err = events.ErrBusClosed
		rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "", auth...)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("no bus", func(t *testing.T) {
		ts := newTestServer(t, readyEngine(), withoutEvents())
		rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "", auth...)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAdminRoutesWithoutToken(t *testing.T) {
	noToken := func(cfg *config.Config) { cfg.Security.AdminToken = "" }

	ts := newTestServer(t, readyEngine(), withConfig(noToken))
	rec := ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "")
	assert.Equal(t, http.StatusAccepted, rec.Code, "development mounts admin routes without a token")

	ts = newTestServer(t, readyEngine(), withConfig(func(cfg *config.Config) {
		noToken(cfg)
		cfg.Server.Environment = "production"
	}))
	rec = ts.do(t, http.MethodPost, "/api/v1/admin/retrain", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, ts.publisher.reqs)
}

func TestAdminPerformance(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	ts.do(t, http.MethodGet, "/api/v1/test", "")

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/performance", "", AdminTokenHeader, "s3cret-admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/test")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	ts.do(t, http.MethodGet, "/api/v1/test", "")

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, readyEngine())
	rec := ts.do(t, http.MethodOptions, "/api/v1/recommend", "",
		"Origin", "https://example.org",
		"Access-Control-Request-Method", "POST")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFlattenResults(t *testing.T) {
	ids, notFound := flattenResults(nil)
	assert.Empty(t, ids)
	assert.NotNil(t, notFound)

	ids, notFound = flattenResults(readyEngine().results)
	assert.Equal(t, []string{"b2", "c3", "a1"}, ids)
	assert.Equal(t, []string{"zz"}, notFound)
}

func TestSanitizeLogValue(t *testing.T) {
	assert.Equal(t, `a\x0ab`, sanitizeLogValue("a\nb"))
	assert.Equal(t, "plain", sanitizeLogValue("plain"))
}
