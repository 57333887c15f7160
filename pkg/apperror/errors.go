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

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUnauthorized() *AppError {
	return New("AUTH_002", "Caller does not own this resource", http.StatusForbidden)
}

// ---- Webhook Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid webhook signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_002", "Webhook timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_003", "Nonce has already been used", http.StatusForbidden)
}

// ---- Order Fulfillment (ORD) ----

func ErrNotFound(entity string) *AppError {
	return New("ORD_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("ORD_002", fmt.Sprintf("cannot transition order from %s to %s", from, to), http.StatusConflict)
}

func ErrIncompleteContent() *AppError {
	return New("ORD_003", "Delivery content is not complete enough to send", http.StatusUnprocessableEntity)
}

func ErrMissingMode() *AppError {
	return New("ORD_004", "Delivery mode has not been selected", http.StatusUnprocessableEntity)
}

func ErrModeLocked() *AppError {
	return New("ORD_005", "Delivery mode cannot change once chosen", http.StatusConflict)
}

func ErrDuplicateOrder() *AppError {
	return New("ORD_006", "Order already exists", http.StatusConflict)
}

// ---- Ledger & Withdrawals (LED) ----

func ErrInsufficientBalance() *AppError {
	return New("LED_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrWithdrawalSettled() *AppError {
	return New("LED_003", "Withdrawal request already settled", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageFailure wraps a storage error. Callers may retry: no exposed
// operation leaves partial effects behind.
func ErrStorageFailure(err error) *AppError {
	return Wrap("SYS_001", "Storage failure, safe to retry", http.StatusInternalServerError, err)
}

// ErrConcurrencyConflict signals a lost race that the caller may retry.
func ErrConcurrencyConflict(err error) *AppError {
	return Wrap("SYS_002", "Concurrent update conflict, safe to retry", http.StatusConflict, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ---- Request Validation (VAL) ----

// Validation returns a malformed-request error. Distinct from LED_002, which
// covers amounts the ledger refuses.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
