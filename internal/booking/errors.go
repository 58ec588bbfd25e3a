package booking

// Domain errors raised by the lifecycle service. Handlers translate them
// to HTTP status codes in one place; nothing below the boundary touches
// status codes.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// StateError means the operation is not valid for the booking's current
// status, e.g. cancelling a completed booking.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// ConflictError means a concurrent caller won the race for the same
// transition, e.g. two workers accepting one pending booking.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
