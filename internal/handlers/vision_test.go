package handlers

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/edita-ar/apiserver/internal/ratelimit"
	"github.com/edita-ar/apiserver/internal/services"
	"github.com/edita-ar/apiserver/internal/vision"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisionRouter(collab vision.Collaborator, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	VisionRouter(r, services.NewAnalysisService(collab, time.Second, testLogger), limiter, testLogger)
	return r
}

func detectRequest(t *testing.T) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, "file", "scan.png", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestDetect(t *testing.T) {
	router := newVisionRouter(&fakeCollaborator{items: []string{"Arduino Uno", "LED"}}, nil)

	rec := serve(router, detectRequest(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"items":["Arduino Uno","LED"]}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	router := newVisionRouter(&fakeCollaborator{}, nil)
	body := jsonBody(t, map[string]string{
		"image":  "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		"target": "Attach the servo",
	})

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/analyze", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"target":"Attach the servo","complete":true,"feedback":"done"}`, rec.Body.String())
}

func TestVisionErrors(t *testing.T) {
	rec := serve(newVisionRouter(nil, nil), detectRequest(t))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.ErrVisionNotConfigured.Error(), decodeDetail(t, rec))

	rec = serve(newVisionRouter(&fakeCollaborator{err: errBoom}, nil), detectRequest(t))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	body := jsonBody(t, map[string]string{"image": "!!!", "target": "servo"})
	rec = serve(newVisionRouter(&fakeCollaborator{}, nil), httptest.NewRequest(http.MethodPost, "/analyze", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image is not valid base64", decodeDetail(t, rec))
}

func TestVisionRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	router := newVisionRouter(&fakeCollaborator{items: []string{"LED"}}, ratelimit.New(rdb, 2, time.Minute))

	for i := 0; i < 2; i++ {
		rec := serve(router, detectRequest(t))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(router, detectRequest(t))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", decodeDetail(t, rec))
}

func TestVisionRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	router := newVisionRouter(&fakeCollaborator{items: []string{"LED"}}, ratelimit.New(rdb, 1, time.Minute))
	mr.Close()

	rec := serve(router, detectRequest(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}
