package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"urst/config"
	middleware "urst/middlewares"
	"urst/models"
	"urst/testutils"
	"urst/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testCleanupSecret = "cron-secret"
	testSessionSecret = "session-secret"
)

type testServer struct {
	t   *testing.T
	app *app
	db  *gorm.DB
}

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver:      "sqlite",
		CleanupSecret:       testCleanupSecret,
		SessionSecret:       testSessionSecret,
		ClickMode:           mode,
		ClickWorkers:        2,
		ClickQueueSize:      64,
		ClickFlushInterval:  10 * time.Millisecond,
		ClickFlushThreshold: 1,
		RateLimitStrategy:   "off",
	}
	db := testutils.OpenSQLite(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, db, nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(context.Background()) })
	return &testServer{t: t, app: a, db: db}
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Host = "sho.rt"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.app.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) shorten(url string, headers map[string]string) map[string]any {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/shorten", map[string]string{"url": url}, headers)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sessionHeader(t *testing.T, user string) map[string]string {
	token, err := middleware.NewAuthenticator(testSessionSecret).Sign(jwt.RegisteredClaims{
		Subject:   user,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestShortenAndRedirect(t *testing.T) {
	s := newTestServer(t, "async")

	out := s.shorten("example.org", nil)
	code := out["code"].(string)
	assert.Len(t, code, 9)
	assert.Equal(t, "UNepBeMEa", code)
	assert.Equal(t, "https://example.org", out["originalUrl"])
	assert.Equal(t, "http://sho.rt/"+code, out["shortUrl"])
	assert.NotEmpty(t, out["expiresAt"])

	rec := s.do(http.MethodGet, "/"+code, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.org", rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Header().Get("X-Response-Time"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestShortenIsIdempotentOverHTTP(t *testing.T) {
	s := newTestServer(t, "async")

	first := s.shorten("https://example.com", nil)
	second := s.shorten("https://example.com", nil)
	assert.Equal(t, first["code"], second["code"])
	assert.Equal(t, true, first["created"])
	assert.Equal(t, false, second["created"])
}

func TestTrailingSlashGetsDistinctCode(t *testing.T) {
	s := newTestServer(t, "async")

	a := s.shorten("https://a.com", nil)
	b := s.shorten("https://a.com/", nil)
	assert.NotEqual(t, a["code"], b["code"])
}

func TestShortenValidation(t *testing.T) {
	s := newTestServer(t, "async")

	rec := s.do(http.MethodPost, "/api/shorten", map[string]string{"url": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "url is required")

	rec = s.do(http.MethodPost, "/api/shorten", map[string]string{"url": "not a url##"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid URL")

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.app.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownCodeServesNotFoundPage(t *testing.T) {
	s := newTestServer(t, "async")

	for _, path := range []string{"/AAAAAAAAA", "/nope"} {
		rec := s.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Link not found")
	}

	rec := s.do(http.MethodGet, "/api/urls/AAAAAAAAA", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirectCountsClicks(t *testing.T) {
	for _, mode := range []string{"async", "batch"} {
		t.Run(mode, func(t *testing.T) {
			s := newTestServer(t, mode)
			code := s.shorten("https://example.org/clicks", nil)["code"].(string)

			for i := 0; i < 3; i++ {
				require.Equal(t, http.StatusFound, s.do(http.MethodGet, "/"+code, nil, nil).Code)
			}

			assert.Eventually(t, func() bool {
				rec := s.do(http.MethodGet, "/api/urls/"+code, nil, nil)
				var stats map[string]any
				if json.Unmarshal(rec.Body.Bytes(), &stats) != nil {
					return false
				}
				return stats["clicks"] == float64(3)
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestExpiredLinkIsNotFound(t *testing.T) {
	s := newTestServer(t, "async")

	past := time.Now().UTC().Add(-time.Second)
	require.NoError(t, s.db.Create(&models.ShortLink{
		Code:        "EXPIRED01",
		OriginalURL: "https://old.example",
		CreatedAt:   past.Add(-models.AnonymousTTL),
		ExpiresAt:   &past,
	}).Error)

	rec := s.do(http.MethodGet, "/EXPIRED01", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentAndOwnership(t *testing.T) {
	s := newTestServer(t, "async")
	alice := sessionHeader(t, "alice")
	bob := sessionHeader(t, "bob")

	owned := s.shorten("https://alice.example", alice)
	assert.Nil(t, owned["expiresAt"], "owned links never expire")
	s.shorten("https://anon.example", nil)

	var list []map[string]any
	rec := s.do(http.MethodGet, "/api/urls/recent", nil, alice)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "https://alice.example", list[0]["original_url"])

	rec = s.do(http.MethodGet, "/api/urls/recent?limit=10", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "https://anon.example", list[0]["original_url"])

	code := owned["code"].(string)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/urls/"+code, nil, bob).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/urls/"+code, nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/urls/"+code, nil, alice).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/urls/"+code, nil, alice).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/"+code, nil, nil).Code)
}

func TestEmptyHistoryIsAnArray(t *testing.T) {
	s := newTestServer(t, "async")
	rec := s.do(http.MethodGet, "/api/urls/recent", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestInvalidSessionIsRejected(t *testing.T) {
	s := newTestServer(t, "async")
	rec := s.do(http.MethodPost, "/api/shorten", map[string]string{"url": "example.org"},
		map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCleanupEndpoint(t *testing.T) {
	s := newTestServer(t, "async")

	expired := time.Now().UTC().Add(-time.Second)
	require.NoError(t, s.db.Create(&models.ShortLink{
		Code:        utils.GenerateKey("https://stale.example"),
		OriginalURL: "https://stale.example",
		CreatedAt:   expired.Add(-models.AnonymousTTL),
		ExpiresAt:   &expired,
	}).Error)
	s.shorten("https://fresh.example", nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/cleanup", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/cleanup", nil,
		map[string]string{"Authorization": "Bearer wrong"}).Code)

	rec := s.do(http.MethodPost, "/api/cleanup", nil, map[string]string{"Authorization": "Bearer " + testCleanupSecret})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"purged":1}`, rec.Body.String())

	var count int64
	require.NoError(t, s.db.Model(&models.ShortLink{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	rec = s.do(http.MethodPost, "/api/cleanup", nil, map[string]string{"Authorization": "Bearer " + testCleanupSecret})
	assert.JSONEq(t, `{"success":true,"purged":0}`, rec.Body.String())
}

func TestHealthMetricsAndFrontEnd(t *testing.T) {
	s := newTestServer(t, "async")

	rec := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	s.do(http.MethodGet, "/AAAAAAAAA", nil, nil)
	rec = s.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "urst_http_requests_total")

	rec = s.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shorten-form")

	rec = s.do(http.MethodGet, "/static/app.js", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
