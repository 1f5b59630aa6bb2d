package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error shared by the ATM session layer and the admin API.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so errors.Is works against the constructors below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid card number or PIN", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired session token", http.StatusUnauthorized)
}

func ErrTokenCollision() *AppError {
	return New("AUTH_005", "Session token collision", http.StatusConflict)
}

// ---- Ledger Business Logic (LEDGER) ----

func ErrInsufficientFunds() *AppError {
	return New("LEDGER_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LEDGER_002", "Invalid amount", http.StatusBadRequest)
}

func ErrInvalidOTP() *AppError {
	return New("LEDGER_003", "One-time password mismatch", http.StatusForbidden)
}

func ErrNotFound(entity string) *AppError {
	return New("LEDGER_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrDuplicateCard() *AppError {
	return New("LEDGER_005", "Card number already registered", http.StatusConflict)
}

// ---- Protocol (PROTO) ----

// ErrProtocolViolation signals a client bug; the session is torn down.
func ErrProtocolViolation(reason string) *AppError {
	return New("PROTO_001", reason, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Too many login attempts", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrPersistence(err error) *AppError {
	return Wrap("SYS_001", "Ledger persistence failure", http.StatusInternalServerError, err)
}

func ErrCatalog(err error) *AppError {
	return Wrap("SYS_003", "Text catalog unavailable", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LEDGER_002-style validation error.
func Validation(message string) *AppError {
	return New("LEDGER_002", message, http.StatusBadRequest)
}

// IsProtocolViolation reports whether err must end the session.
func IsProtocolViolation(err error) bool {
	return CodeOf(err) == "PROTO_001"
}
