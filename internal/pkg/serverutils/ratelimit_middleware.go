// FILE: internal/pkg/serverutils/ratelimit_middleware.go
package serverutils

import (
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"

	"rag-patient-be/internal/settings"
	"rag-patient-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimitMiddleware admits or rejects a request before its body is parsed.
// A request carrying a session id is billed ONLY to the session bucket, an
// anonymous one ONLY to the IP bucket. Store failures follow the fail-open
// setting: pass the request through or answer 503.
func RateLimitMiddleware(limiter *ratelimit.Limiter, settingsStore *settings.Store) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		cfg := settingsStore.Current()
		if !cfg.RateLimitEnabled {
			return ctx.Next()
		}

		scope := ratelimit.ScopeIP
		id := clientIP(ctx)
		capacity := cfg.RateLimitIPPerMin
		if sessionId := sessionID(ctx); sessionId != "" {
			scope = ratelimit.ScopeSession
			id = sessionId
			capacity = cfg.RateLimitSessionPerMin
		}

		decision, err := limiter.Allow(ctx.Context(), scope, id, capacity)
		if err != nil {
			log.Printf("[WARN] Rate limiter unavailable: %v", err)
			if cfg.RateLimitFailOpen {
				return ctx.Next()
			}
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": "rate_limiter_unavailable",
			})
		}
		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "rate_limited",
				"scope":  decision.Scope,
			})
		}
		return ctx.Next()
	}
}

// clientIP prefers proxy headers over the socket address.
func clientIP(ctx *fiber.Ctx) string {
	if fwd := ctx.Get(fiber.HeaderXForwardedFor); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := ctx.Get("X-Real-IP"); real != "" {
		return real
	}
	return ctx.IP()
}

// sessionID pulls the session from the X-Session-ID header or, failing that,
// peeks into the JSON body without consuming it.
func sessionID(ctx *fiber.Ctx) string {
	if v := ctx.Get("X-Session-ID"); v != "" {
		return v
	}
	body := ctx.Body()
	if len(body) == 0 {
		return ""
	}
	var probe struct {
		SessionId string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.SessionId
}
