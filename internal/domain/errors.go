package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

// ErrAlreadyCompleted is the conflict returned when a one-way completion is repeated.
func ErrAlreadyCompleted(entity string) *AppError {
	return &AppError{Code: "ALREADY_COMPLETED", Message: fmt.Sprintf("%s already completed", entity), Status: 409}
}

// ErrChallengeExpired is returned by a completion attempt past a timed challenge's deadline.
func ErrChallengeExpired() *AppError {
	return &AppError{Code: "CHALLENGE_EXPIRED", Message: "challenge has expired", Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrLevelGateNotMet is returned when advancing a track whose current level is not complete.
func ErrLevelGateNotMet(level, completed, required int) *AppError {
	return &AppError{
		Code:    "LEVEL_GATE_NOT_MET",
		Message: fmt.Sprintf("level %d needs %d completed tasks, has %d", level, required, completed),
		Status:  400,
	}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrUpstreamUnavailable(service string, cause error) *AppError {
	return &AppError{Code: "UPSTREAM_UNAVAILABLE", Message: fmt.Sprintf("%s unavailable", service), Status: 502, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// IsConflict reports whether err is a conflict-class AppError.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status == 409
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
