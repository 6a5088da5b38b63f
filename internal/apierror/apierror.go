// Package apierror provides the error taxonomy shared by every layer and the
// standardized response envelopes for the API. All errors returned to clients
// go through this package to ensure consistency and to prevent leaking
// internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and retry semantics.
type Kind string

const (
	KindValidation Kind = "validation" // malformed input — never retryable
	KindNotFound   Kind = "not_found"  // unknown product/supplier/GRN/…
	KindConflict   Kind = "conflict"   // stock shortage, duplicate finalize, lock/idempotency races — retryable
	KindInternal   Kind = "internal"   // storage failure — safe to retry with the same idempotency key
)

// Machine-readable codes carried alongside the kind. Clients branch on these;
// the human-readable message is display-only.
const (
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeAlreadyFinalized  = "ALREADY_FINALIZED"
	CodeDuplicateKey      = "DUPLICATE_KEY"
	CodeLockTimeout       = "LOCK_TIMEOUT"
	CodePaymentMismatch   = "PAYMENT_MISMATCH"
)

// Error is the canonical error type flowing out of services.
type Error struct {
	Kind    Kind
	Code    string // optional — empty for plain validation/not-found errors
	Message string
	Err     error // wrapped cause, logged but never serialized
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func ValidationCode(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Internal wraps a storage/infrastructure failure. The cause is kept for
// logging; clients only ever see the generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// From normalizes any error into an *Error. Unknown errors become internal so
// that no raw storage-engine message reaches a client.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps the taxonomy onto response codes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ── Response envelopes ───────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError { return &APIError{Detail: msg} }

// Envelope renders e for a client. Internal errors are masked.
func (e *Error) Envelope() *APIError {
	if e.Kind == KindInternal {
		return &APIError{Detail: "internal server error"}
	}
	return &APIError{Detail: e.Message, Code: e.Code}
}

// ValidationError wraps multiple field errors from request binding.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
