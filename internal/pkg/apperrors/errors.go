package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type ErrorType string

const (
	ErrPaymentRequired   ErrorType = "PAYMENT_REQUIRED"
	ErrUserCancelled     ErrorType = "USER_CANCELLED"
	ErrTransactionFailed ErrorType = "TRANSACTION_FAILED"
	ErrRequestFailed     ErrorType = "REQUEST_FAILED"
	ErrInvalidAmount     ErrorType = "INVALID_AMOUNT"
	ErrInvalidRequest    ErrorType = "INVALID_REQUEST"
	ErrInternal          ErrorType = "INTERNAL_ERROR"
	ErrUpstream          ErrorType = "UPSTREAM_ERROR"
)

// PaymentChallenge is the structured payload of a payment-required failure.
// It is carried on the error and never persisted.
type PaymentChallenge struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
}

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Challenge  *PaymentChallenge `json:"challenge,omitempty"`
	HTTPStatus int               `json:"-"`
	Cause      error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

// NewPaymentRequired builds the challenge error the API client raises on a
// well-formed 402 response.
func NewPaymentRequired(ch PaymentChallenge) *AppError {
	msg := ch.Message
	if msg == "" {
		msg = "Payment Required"
	}
	err := New(ErrPaymentRequired, msg, nil)
	err.Challenge = &ch
	return err
}

func NewRequestFailed(msg string) *AppError {
	return New(ErrRequestFailed, msg, nil)
}

func NewUserCancelled() *AppError {
	return New(ErrUserCancelled, "Transaction cancelled.", nil)
}

func NewTransactionFailed(reason string, cause error) *AppError {
	return New(ErrTransactionFailed, reason, cause)
}

func NewInvalidAmount(msg string) *AppError {
	return New(ErrInvalidAmount, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == t
}

// ChallengeFrom extracts the payment challenge from err, if any.
func ChallengeFrom(err error) (*PaymentChallenge, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	if appErr.Type != ErrPaymentRequired || appErr.Challenge == nil {
		return nil, false
	}
	return appErr.Challenge, true
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrPaymentRequired:
		return http.StatusPaymentRequired
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrUserCancelled:
		return http.StatusConflict
	case ErrRequestFailed, ErrTransactionFailed, ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrPaymentRequired:
		return "Settle the payment challenge and resubmit."
	case ErrUserCancelled:
		return "Approve the transaction in the wallet to proceed."
	case ErrTransactionFailed:
		return "Check wallet balance and retry the analysis."
	case ErrRequestFailed:
		return "Retry the analysis."
	default:
		return ""
	}
}
