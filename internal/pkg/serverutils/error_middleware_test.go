// FILE: internal/pkg/serverutils/error_middleware_test.go
package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type conflictError struct {
	msg string
}

func (e *conflictError) Error() string   { return e.msg }
func (e *conflictError) StatusCode() int { return fiber.StatusConflict }

func newErrorApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	return app
}

func decodeErrorBody(t *testing.T, resp *http.Response) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestErrorHandlerPassesSuccessThrough(t *testing.T) {
	app := newErrorApp()
	app.Get("/ok", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("All good", "payload"))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body Response[string]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "payload", body.Data)
}

func TestErrorHandlerMapsStatusCoder(t *testing.T) {
	app := newErrorApp()
	app.Get("/conflict", func(ctx *fiber.Ctx) error {
		return &conflictError{msg: "stale turn_number"}
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/conflict", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body := decodeErrorBody(t, resp)
	assert.Equal(t, fiber.StatusConflict, body.Status)
	assert.Equal(t, "stale turn_number", body.Message)
}

func TestErrorHandlerMapsValidationErrors(t *testing.T) {
	app := newErrorApp()
	app.Get("/invalid", func(ctx *fiber.Ctx) error {
		req := struct {
			Name string `validate:"required"`
		}{}
		return ValidateRequest(req)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeErrorBody(t, resp)
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Details, 1)
	assert.Contains(t, body.Details[0], "required")
}

func TestErrorHandlerMapsBodyParseErrors(t *testing.T) {
	app := newErrorApp()
	app.Post("/parse", func(ctx *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("Parsed", req.Name))
	})

	for _, payload := range []string{`{"name":`, `{"name":123}`} {
		req := httptest.NewRequest(fiber.MethodPost, "/parse", strings.NewReader(payload))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeErrorBody(t, resp)
		assert.Equal(t, "Invalid request body", body.Message)
	}
}

func TestErrorHandlerKeepsFiberErrors(t *testing.T) {
	app := newErrorApp()
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Case not found")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body := decodeErrorBody(t, resp)
	assert.Equal(t, "Case not found", body.Message)
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	app := newErrorApp()
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return errors.New("pq: connection reset")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := decodeErrorBody(t, resp)
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, body.Message, "pq:")
}
