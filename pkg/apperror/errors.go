package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
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

// ---- Game & Settlement (GAME) ----

// Validation returns a GAME_001 validation error with a custom message.
func Validation(message string) *AppError {
	return New("GAME_001", message, http.StatusBadRequest)
}

func ErrInvalidTarget() *AppError {
	return New("GAME_001", "Target must be between 1 and 99", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("GAME_001", "Invalid bet amount", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("GAME_002", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrNoPendingBet() *AppError {
	return New("GAME_003", "No pending bet to roll", http.StatusConflict)
}

func ErrNoAccount() *AppError {
	return New("GAME_004", "Account not found", http.StatusNotFound)
}

// ---- Ledger (LEDGER) ----

func ErrDuplicateExternalTransaction() *AppError {
	return New("LEDGER_001", "External transaction already applied", http.StatusConflict)
}

func ErrStorageConflict(err error) *AppError {
	return Wrap("LEDGER_002", "Storage conflict persisted after retries", http.StatusServiceUnavailable, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
