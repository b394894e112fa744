package auction

import (
	"errors"
	"fmt"
)

// Business-rule rejections returned by the auction service. Every rejection
// leaves the store untouched; the transaction is rolled back on any of these.
var (
	ErrUnknownAccount    = errors.New("unknown account")
	ErrUnknownListing    = errors.New("unknown listing")
	ErrUnknownWallet     = errors.New("unknown wallet")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrSelfBid           = errors.New("seller cannot bid on own listing")
	ErrNotOwner          = errors.New("caller does not own this resource")
	ErrListingNotActive  = errors.New("listing not active")
	ErrListingHasBids    = errors.New("listing already has bids")
	ErrBiddingClosed     = errors.New("bidding closed")
	ErrBidBelowMinimum   = errors.New("bid below minimum")
	ErrRedundantBid      = errors.New("bid matches current high bid")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrUnknownNotification     = errors.New("unknown notification")
)

// Validation failures produced by value-type constructors.
var (
	ErrInvalidUserID           = errors.New("invalid user id")
	ErrInvalidListingID        = errors.New("invalid listing id")
	ErrInvalidBidID            = errors.New("invalid bid id")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidAccountRole      = errors.New("invalid account role")
	ErrInvalidListingStatus    = errors.New("invalid listing status")
	ErrInvalidLedgerKind       = errors.New("invalid ledger kind")
	ErrInvalidNotificationType = errors.New("invalid notification type")
	ErrInvalidIdempotencyKey   = errors.New("invalid idempotency key")
	ErrInvalidListingWindow    = errors.New("invalid listing time window")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
