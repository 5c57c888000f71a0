package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation_error"
	CodeNotFound           ErrorCode = "not_found"
	CodeState              ErrorCode = "state_error"
	CodeInsufficientPoints ErrorCode = "insufficient_points"
	CodeProvider           ErrorCode = "provider_error"
	CodeForbidden          ErrorCode = "forbidden"
	CodeUnknown            ErrorCode = "unknown_error"
)

// Error is the single error type crossing the orchestrator boundary.
// The code decides the HTTP status; the message is safe to return to callers.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func ValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func StateError(format string, args ...any) *Error {
	return &Error{Code: CodeState, Message: fmt.Sprintf(format, args...)}
}

func InsufficientPointsError(have, want int64) *Error {
	return &Error{
		Code:    CodeInsufficientPoints,
		Message: fmt.Sprintf("insufficient points: have %d, need %d", have, want),
	}
}

func ProviderError(provider string, err error) *Error {
	return &Error{Code: CodeProvider, Message: fmt.Sprintf("%s: %v", provider, err)}
}

func ForbiddenError(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// CodeOf classifies any error; non-domain errors map to CodeUnknown.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}
