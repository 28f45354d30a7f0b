package services

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-readable reason attached to a failed operation.
type ErrorCode string

const (
	CodeInvalidInput           ErrorCode = "INVALID_INPUT"
	CodeInvalidAddress         ErrorCode = "INVALID_ADDRESS"
	CodeInvalidCoordinates     ErrorCode = "INVALID_COORDINATES"
	CodePickupAddressNotFound  ErrorCode = "PICKUP_ADDRESS_NOT_FOUND"
	CodeProductUnavailable     ErrorCode = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock      ErrorCode = "INSUFFICIENT_STOCK"
	CodeVoucherNotFound        ErrorCode = "VOUCHER_NOT_FOUND"
	CodeMinimumNotMet          ErrorCode = "MINIMUM_NOT_MET"
	CodeUsageLimitExceeded     ErrorCode = "USAGE_LIMIT_EXCEEDED"
	CodeOrderNotFound          ErrorCode = "ORDER_NOT_FOUND"
	CodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	CodeConcurrencyViolation   ErrorCode = "CONCURRENCY_VIOLATION"
	CodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// DomainError is returned by services for every failure the caller should see.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

func newError(code ErrorCode, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func internalError(message string, err error) *DomainError {
	return &DomainError{Code: CodeInternal, Message: message, Err: err}
}

// ErrorCodeOf returns the code carried by err, or CodeInternal for anything else.
func ErrorCodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// asDomainError keeps domain errors intact and wraps everything else as internal.
func asDomainError(err error, message string) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return internalError(message, err)
}
