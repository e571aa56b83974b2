package errs

import (
	"errors"
	"net/http"
	"strings"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation       Code = "validation_failure"
	CodeNotFound         Code = "not_found"
	CodeAlreadyExists    Code = "already_exists"
	CodeUnauthorized     Code = "unauthorized"
	CodeInvalidFunds     Code = "invalid_funds_provided"
	CodeUnsupportedShape Code = "unsupported_trade_shape"
	CodeOracleFailure    Code = "oracle_failure"
	CodeInvalidRequest   Code = "invalid_request"
)

// HTTPStatus maps a code to the status the API adapter responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidFunds, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeUnsupportedShape:
		return http.StatusNotImplemented
	case CodeOracleFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the exchange's domain error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation       = New(CodeValidation, "validation failure")
	ErrNotFound         = New(CodeNotFound, "not found")
	ErrAlreadyExists    = New(CodeAlreadyExists, "already exists")
	ErrUnauthorized     = New(CodeUnauthorized, "unauthorized")
	ErrInvalidFunds     = New(CodeInvalidFunds, "invalid funds provided")
	ErrUnsupportedShape = New(CodeUnsupportedShape, "trade shape not yet supported")
	ErrOracleFailure    = New(CodeOracleFailure, "oracle failure")
	ErrInvalidRequest   = New(CodeInvalidRequest, "invalid request")
)

// ValidationError aggregates every violated rule of one validation pass.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeValidation
}

// Validation returns nil when messages is empty.
func Validation(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}

// CodeOf extracts the code of err, defaulting to "internal".
func CodeOf(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeValidation
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// MessagesOf returns the aggregated messages of a validation failure.
func MessagesOf(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Messages
	}
	return nil
}
