package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrPhoneAlreadyExists = errors.New("phone already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code has expired")
	ErrTooManyRequests    = errors.New("too many requests")

	ErrBusinessNotFound = errors.New("business not found")
	ErrNotMember        = errors.New("user is not a member of this business")
	ErrNoActiveBusiness = errors.New("no business selected")
	ErrAlreadyMember    = errors.New("user is already a member of this business")

	ErrCustomerNotFound = errors.New("customer not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrCartItemNotFound = errors.New("item is not in the cart")
	ErrEmptyCart        = errors.New("cart is empty")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrConflict          = errors.New("conflicting concurrent update")
)

// ValidationError is a malformed or semantically invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError names the first item that could not be covered.
type InsufficientStockError struct {
	ItemID    uint
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ItemName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func insufficientStock(id uint, name string, requested, available int) error {
	return &InsufficientStockError{ItemID: id, ItemName: name, Requested: requested, Available: available}
}
