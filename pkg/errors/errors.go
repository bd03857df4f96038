// Package errors provides unified application error definitions.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// Generic errors (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// Resource errors (3xxx)
	CodeCaseNotFound   ErrorCode = "3001"
	CodeResultNotFound ErrorCode = "3002"

	// Pipeline and retrieval errors (4xxx)
	CodeEmptyReport            ErrorCode = "4001"
	CodeEncoderUnavailable     ErrorCode = "4002"
	CodeIndexUnavailable       ErrorCode = "4003"
	CodeExplanationUnavailable ErrorCode = "4004"
	CodeNoMatches              ErrorCode = "4005"
	CodeRetrievalFailed        ErrorCode = "4006"

	// External service errors (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeVectorDBError ErrorCode = "5003"
	CodeLLMError      ErrorCode = "5004"
)

// AppError is the application error carried across layers.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches human-readable detail.
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError attaches an underlying error.
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeEmptyReport:
		return http.StatusBadRequest
	case CodeNotFound, CodeCaseNotFound, CodeResultNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeEncoderUnavailable, CodeIndexUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors.
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrCaseNotFound   = New(CodeCaseNotFound, "case not found")
	ErrResultNotFound = New(CodeResultNotFound, "result not found")

	// ErrEmptyReport: the report has no text to chunk. Fatal for that
	// report, never retried.
	ErrEmptyReport = New(CodeEmptyReport, "report text is empty")
	// ErrEncoderUnavailable: an embedding encoder call failed. The affected
	// chunk is excluded from indexing or contributes zero at query time.
	ErrEncoderUnavailable = New(CodeEncoderUnavailable, "embedding encoder unavailable")
	// ErrIndexUnavailable: the case index rejected a call. Fatal for the
	// affected operation; callers retry the whole operation.
	ErrIndexUnavailable = New(CodeIndexUnavailable, "case index unavailable")
	// ErrExplanationUnavailable: the explanation collaborator failed.
	// Non-fatal; ranking results are still returned.
	ErrExplanationUnavailable = New(CodeExplanationUnavailable, "explanation unavailable")
	// ErrNoMatches: no resolved reference case was retrieved at all.
	ErrNoMatches = New(CodeNoMatches, "no matching reference cases")
)

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AsAppError converts any error to an AppError.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
