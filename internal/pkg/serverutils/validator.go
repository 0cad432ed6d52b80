// FILE: internal/pkg/serverutils/validator.go
package serverutils

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidateRequest checks a bound request body against its validate tags. The
// returned validator.ValidationErrors is mapped to a 400 by the error
// handler middleware.
func ValidateRequest(req any) error {
	return validate.Struct(req)
}
