// Package errors provides the coded errors returned by the widget API.
//
// Usage:
//
//	// In services - return typed errors
//	if req.Query == "" {
//	    return errors.New(errors.CodeMissingQuery, "검색어를 입력해주세요.")
//	}
//
//	// In handlers - the code decides the status
//	var apiErr *errors.Error
//	if errors.As(err, &apiErr) {
//	    w.WriteHeader(apiErr.HTTPStatus())
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes surfaced in the response envelope.
const (
	CodeMissingParameters   Code = "MISSING_PARAMETERS"
	CodeMissingQuery        Code = "MISSING_QUERY"
	CodeInvalidAPIKey       Code = "INVALID_API_KEY"
	CodeInvalidDatabaseID   Code = "INVALID_DATABASE_ID"
	CodeInvalidAction       Code = "INVALID_ACTION"
	CodeInvalidConfig       Code = "INVALID_CONFIG"
	CodeValidation          Code = "VALIDATION"
	CodeAPIKeyMissing       Code = "API_KEY_MISSING"
	CodeProviderError       Code = "PROVIDER_ERROR"
	CodeAladinAPIError      Code = "ALADIN_API_ERROR"
	CodeKakaoAPIError       Code = "KAKAO_API_ERROR"
	CodeSearchError         Code = "SEARCH_ERROR"
	CodeDatabaseFetchFailed Code = "DATABASE_FETCH_FAILED"
	CodeAnalysisFailed      Code = "ANALYSIS_FAILED"
	CodeSaveError           Code = "SAVE_ERROR"
	CodeFetchError          Code = "FETCH_ERROR"
	CodeUpdateError         Code = "UPDATE_ERROR"
	CodeSetupError          Code = "SETUP_ERROR"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeInternal            Code = "INTERNAL_SERVER_ERROR"
)

// HTTPStatus returns the HTTP status code for an error code.
//
// Fetch and update failures on the to-do endpoint keep a 200 status; the
// widget reads success=false from the envelope instead.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingParameters, CodeMissingQuery, CodeInvalidAPIKey, CodeInvalidDatabaseID,
		CodeInvalidConfig, CodeValidation, CodeProviderError, CodeAladinAPIError, CodeKakaoAPIError,
		CodeDatabaseFetchFailed, CodeAnalysisFailed:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeFetchError, CodeUpdateError, CodeInvalidAction, CodeSetupError:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with an optional status override and details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	status  int
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the status for this error.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	return e.Code.HTTPStatus()
}

// GetStatus lets HTTP frameworks that look for a status-bearing error use
// HTTPStatus directly.
func (e *Error) GetStatus() int {
	return e.HTTPStatus()
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// WithStatus returns a copy that reports status instead of the code default.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.status = status
	return &c
}

// Sentinel errors for use with errors.Is().
var (
	ErrMissingParameters = &Error{Code: CodeMissingParameters, Message: "필수 파라미터가 누락되었습니다."}
	ErrInvalidAction     = &Error{Code: CodeInvalidAction, Message: "잘못된 액션입니다."}
	ErrAPIKeyMissing     = &Error{Code: CodeAPIKeyMissing, Message: "검색 API 키가 설정되지 않았습니다."}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrRateLimited       = &Error{Code: CodeRateLimited, Message: "Too many requests. Please try again later."}
	ErrInternal          = &Error{Code: CodeInternal, Message: "Internal server error"}
)

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
