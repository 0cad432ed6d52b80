// FILE: internal/pkg/serverutils/response.go
package serverutils

// Response is the success envelope every endpoint returns.
type Response[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// ErrorBody is the error envelope, shared by the error handler middleware and
// handlers that answer early.
type ErrorBody struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func ErrorResponse(status int, message string) ErrorBody {
	return ErrorBody{
		Status:  status,
		Message: message,
	}
}
