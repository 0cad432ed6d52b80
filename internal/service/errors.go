// FILE: internal/service/errors.go
package service

import "fmt"

// NotFoundError marks a missing resource. The error middleware renders 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) StatusCode() int {
	return 404
}

// TurnOrderError rejects a turn that arrives at or behind the persisted
// counter. Nothing is mutated when this fires.
type TurnOrderError struct {
	Requested      int
	LastTurnNumber int
}

func (e *TurnOrderError) Error() string {
	return fmt.Sprintf("turn_number %d must be greater than last_turn_number %d", e.Requested, e.LastTurnNumber)
}

func (e *TurnOrderError) StatusCode() int {
	return 409
}

// BadRequestError covers malformed domain payloads the validator cannot
// catch, e.g. a case truth that does not decode.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

func (e *BadRequestError) StatusCode() int {
	return 400
}
