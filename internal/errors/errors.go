package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"district-dashboard/internal/services"
	"district-dashboard/internal/source"
)

type ErrorCode string

const (
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeRateLimit             ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeEmptyResult           ErrorCode = "EMPTY_RESULT_SET"
	CodeMissingSubdivision    ErrorCode = "MISSING_SUBDIVISION_DATA"
	CodeDataSourceUnavailable ErrorCode = "DATA_SOURCE_UNAVAILABLE"
)

// AppError is the JSON error envelope returned by every API endpoint.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusFor(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	return e
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func statusFor(code ErrorCode) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound, CodeEmptyResult, CodeMissingSubdivision:
		return http.StatusNotFound
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeDataSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromDomain maps pipeline and loader errors onto the HTTP envelope. Errors
// already carrying an AppError pass through unchanged.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var unavailable *source.UnavailableError
	switch {
	case stderrors.As(err, &unavailable):
		e := Wrap(err, CodeDataSourceUnavailable, "Data source unavailable")
		e.Details = unavailable.Source
		return e
	case stderrors.Is(err, source.ErrDataSourceUnavailable):
		return Wrap(err, CodeDataSourceUnavailable, "Data source unavailable")
	case stderrors.Is(err, services.ErrInvalidQuarter):
		return Wrap(err, CodeValidation, "Invalid quarter")
	case stderrors.Is(err, services.ErrMissingSubdivisionData):
		return Wrap(err, CodeMissingSubdivision, "No data for this subdivision")
	case stderrors.Is(err, services.ErrEmptyResultSet):
		return Wrap(err, CodeEmptyResult, "No data for this quarter")
	default:
		return Wrap(err, CodeInternal, "An unexpected error occurred")
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

func WriteError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := FromDomain(err)
	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < 500 {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "request failed",
		"error_code", appErr.Code,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Data: data, Success: true})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
