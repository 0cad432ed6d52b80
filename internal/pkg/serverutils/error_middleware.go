// FILE: internal/pkg/serverutils/error_middleware.go
package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StatusCoder is implemented by service errors that carry their own HTTP
// status. Keeps the service layer free of fiber imports.
type StatusCoder interface {
	error
	StatusCode() int
}

// ErrorHandlerMiddleware turns errors returned by handlers into JSON error
// envelopes. Anything unrecognized becomes a logged 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var (
			status  = fiber.StatusInternalServerError
			message = "Internal server error"
			details []string
		)

		var coder StatusCoder
		var validationErrs validator.ValidationErrors
		var fiberErr *fiber.Error
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &coder):
			status = coder.StatusCode()
			message = err.Error()
		case errors.As(err, &validationErrs):
			status = fiber.StatusBadRequest
			message = "Validation failed"
			for _, fe := range validationErrs {
				details = append(details, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			status = fiber.StatusBadRequest
			message = "Invalid request body"
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		default:
			log.Printf("[ERROR] %s %s failed: %v", ctx.Method(), ctx.Path(), err)
		}

		body := ErrorResponse(status, message)
		body.Details = details
		return ctx.Status(status).JSON(body)
	}
}
