// FILE: internal/pkg/serverutils/ratelimit_middleware_test.go
package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/settings"
	"rag-patient-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Take(context.Context, string, int, float64, time.Time, time.Duration) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func limitSettings(enabled bool, ipPerMin, sessionPerMin int, failOpen bool) *settings.Store {
	cfg := &config.Config{
		Dialog: config.DialogConfig{RagMode: constant.RagModeMetadata},
		RateLimit: config.RateLimitConfig{
			Enabled:       enabled,
			IPPerMinute:   ipPerMin,
			SessionPerMin: sessionPerMin,
			FailOpen:      failOpen,
		},
	}
	return settings.NewStore(cfg)
}

func newLimitApp(store *settings.Store, limStore ratelimit.Store) *fiber.App {
	limiter := ratelimit.NewLimiter(limStore, log.New(io.Discard, "", 0))
	app := fiber.New()
	app.Post("/turn", RateLimitMiddleware(limiter, store), func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse[any]("Turn processed", nil))
	})
	return app
}

func turnRequest(body string, headers map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(fiber.MethodPost, "/turn", reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeDetail(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRateLimitDisabledPassesEverything(t *testing.T) {
	app := newLimitApp(limitSettings(false, 1, 1, false), ratelimit.NewMemoryStore())

	for i := 0; i < 5; i++ {
		resp, err := app.Test(turnRequest("", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRateLimitIPScope(t *testing.T) {
	app := newLimitApp(limitSettings(true, 3, 1, false), ratelimit.NewMemoryStore())

	for i := 0; i < 3; i++ {
		resp, err := app.Test(turnRequest("", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(turnRequest("", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body := decodeDetail(t, resp)
	assert.Equal(t, "rate_limited", body["detail"])
	assert.Equal(t, ratelimit.ScopeIP, body["scope"])

	retry, err := strconv.Atoi(resp.Header.Get(fiber.HeaderRetryAfter))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 20)
}

func TestRateLimitSessionHeaderScope(t *testing.T) {
	app := newLimitApp(limitSettings(true, 100, 2, false), ratelimit.NewMemoryStore())
	headers := map[string]string{"X-Session-ID": "sess-a"}

	for i := 0; i < 2; i++ {
		resp, err := app.Test(turnRequest("", headers))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(turnRequest("", headers))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, ratelimit.ScopeSession, decodeDetail(t, resp)["scope"])

	// A different session owns its own bucket.
	resp, err = app.Test(turnRequest("", map[string]string{"X-Session-ID": "sess-b"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitSessionFromBodyBypassesIPBucket(t *testing.T) {
	app := newLimitApp(limitSettings(true, 1, 1, false), ratelimit.NewMemoryStore())

	resp, err := app.Test(turnRequest(`{"session_id":"body-sess"}`, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(turnRequest(`{"session_id":"body-sess"}`, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, ratelimit.ScopeSession, decodeDetail(t, resp)["scope"])

	// Session turns never touched the IP bucket, so an anonymous one still fits.
	resp, err = app.Test(turnRequest("", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitClientIPFromProxyHeaders(t *testing.T) {
	app := newLimitApp(limitSettings(true, 1, 1, false), ratelimit.NewMemoryStore())

	resp, err := app.Test(turnRequest("", map[string]string{fiber.HeaderXForwardedFor: "1.2.3.4, 5.6.7.8"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Same first hop, same bucket.
	resp, err = app.Test(turnRequest("", map[string]string{fiber.HeaderXForwardedFor: "1.2.3.4"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, err = app.Test(turnRequest("", map[string]string{"X-Real-IP": "9.9.9.9"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitFailOpen(t *testing.T) {
	app := newLimitApp(limitSettings(true, 1, 1, true), failingStore{})

	resp, err := app.Test(turnRequest("", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitFailClosed(t *testing.T) {
	app := newLimitApp(limitSettings(true, 1, 1, false), failingStore{})

	resp, err := app.Test(turnRequest("", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "rate_limiter_unavailable", decodeDetail(t, resp)["detail"])
}
