package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrUserNotFound is returned when a user id or chat has no stored user.
	ErrUserNotFound = &ServiceError{Code: ErrorNotFound, Message: "user not found"}
	// ErrAlreadyCompleted is returned when the current window's survey was already
	// recorded on the user's organization-local day.
	ErrAlreadyCompleted = &ServiceError{Code: ErrorConflict, Message: "survey already completed for this window"}
	// ErrOutsideSurveyHours is returned when a survey is submitted while no window is open.
	ErrOutsideSurveyHours = &ServiceError{Code: ErrorInvalid, Message: "outside survey hours"}
	// ErrNotRegistered is returned when an action needs a user who finished registration.
	ErrNotRegistered = &ServiceError{Code: ErrorForbidden, Message: "registration not finished"}
)
