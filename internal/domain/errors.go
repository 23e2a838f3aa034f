package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured means no supplier credential set has been saved.
var ErrNotConfigured = errors.New("supplier credentials not configured")

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

type NotFoundError struct {
	Resource string
	ID       string
	Tried    []string // identifiers attempted, e.g. "pid=123"
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("%s not found (tried %s)", e.Resource, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

// AuthenticationError is never retried; the operator has to fix the credentials.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return "supplier authentication failed: " + e.Msg + ": " + e.Err.Error()
	}
	return "supplier authentication failed: " + e.Msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

type RateLimitedError struct {
	Attempts          int
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("supplier rate limit exceeded after %d attempts, retry after %ds", e.Attempts, e.RetryAfterSeconds)
}

type SupplierRejectedError struct {
	Code    int
	Message string
}

func (e *SupplierRejectedError) Error() string {
	return fmt.Sprintf("supplier rejected request (code %d): %s", e.Code, e.Message)
}

// UnconfirmedOrderError: the supplier answered success for an order but sent
// no order id. The remote order may exist, so it must be checked on the
// supplier side before anyone resubmits.
type UnconfirmedOrderError struct {
	Code    int
	Message string
}

func (e *UnconfirmedOrderError) Error() string {
	return fmt.Sprintf("supplier accepted the order without an order id (code %d): %s", e.Code, e.Message)
}

// PartialFailureError: the supplier accepted the order but the local status
// update failed. Needs manual reconciliation; resubmitting may duplicate the
// remote order.
type PartialFailureError struct {
	OrderID         string
	SupplierOrderID string
	Err             error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("order %s accepted by supplier as %s but local update failed: %v", e.OrderID, e.SupplierOrderID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
