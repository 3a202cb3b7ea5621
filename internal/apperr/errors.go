// Package apperr defines the typed error hierarchy used across the purchase
// pipeline so callers can branch on Kind instead of comparing error strings.
package apperr

import "errors"

// Kind classifies an error for retry and HTTP-status-mapping purposes.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindBusiness
	KindTransient
	KindFatal
)

// Error wraps a sentinel with a Kind so the queue and HTTP layer can decide
// whether to retry or how to map it to a status code without string matching.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the queue should redeliver a job that failed
// with this error. Only KindTransient is retried; validation, authorization,
// business, and fatal failures are all terminal.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Business sentinels — terminal outcomes, never retried.
var (
	ErrAlreadyPending      = errors.New("purchase already pending for this user")
	ErrAlreadyPurchased    = errors.New("user already purchased this product")
	ErrNoActiveSale        = errors.New("no active sale for this product")
	ErrSaleNotOpen         = errors.New("sale is not currently open")
	ErrOutOfStock          = errors.New("product is out of stock")
	ErrTooManyAttempts     = errors.New("too many purchase attempts, slow down")
	ErrUnavailable         = errors.New("service temporarily unavailable")
	ErrReservationNotFound = errors.New("reservation not found or expired")
)

// Validation sentinels.
var (
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrInvalidProductID = errors.New("invalid product id")
	ErrEndBeforeStart   = errors.New("end time must be after start time")
	ErrInvalidEmail     = errors.New("invalid email")
)

// Authorization sentinels.
var (
	ErrMissingToken = errors.New("authorization token is missing")
	ErrInvalidToken = errors.New("authorization token is invalid or expired")
	ErrForbidden    = errors.New("caller lacks the required role")
)

// IsKind reports whether err (or one it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Business wraps err as a KindBusiness *Error, the common case at call sites
// in admission and the worker.
func Business(err error) *Error { return New(KindBusiness, err) }

// Transient wraps err as a KindTransient *Error — the queue retries these.
func Transient(err error) *Error { return New(KindTransient, err) }

// Fatal wraps err as a KindFatal *Error — logged, surfaced, never retried.
func Fatal(err error) *Error { return New(KindFatal, err) }
