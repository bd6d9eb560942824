package domain

import (
	"fmt"
	"strings"
)

type InvoiceItem struct {
	ID          string
	ProductID   string
	Description string
	Quantity    int
	UnitPrice   Money
}

func NewInvoiceItem(id, productID, description string, quantity int, unitPrice Money) (InvoiceItem, error) {
	if id == "" {
		return InvoiceItem{}, NewMissingRequiredFieldError("item ID")
	}
	if productID == "" {
		return InvoiceItem{}, NewMissingRequiredFieldError("product ID")
	}
	if strings.TrimSpace(description) == "" {
		return InvoiceItem{}, NewMissingRequiredFieldError("description")
	}
	if err := validateQuantity(quantity); err != nil {
		return InvoiceItem{}, err
	}
	if unitPrice.IsNegative() {
		return InvoiceItem{}, NewValidationError(ErrCodeInvalidAmount, "unit price cannot be negative")
	}

	return InvoiceItem{
		ID:          id,
		ProductID:   productID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

func (i InvoiceItem) Subtotal() Money {
	return i.UnitPrice.MulInt(int64(i.Quantity))
}

// ItemUpdate carries optional changes; nil fields are left untouched.
type ItemUpdate struct {
	Quantity    *int
	UnitPrice   *Money
	Description *string
}

func (i InvoiceItem) apply(u ItemUpdate) (InvoiceItem, error) {
	next := i
	if u.Quantity != nil {
		if err := validateQuantity(*u.Quantity); err != nil {
			return i, err
		}
		next.Quantity = *u.Quantity
	}
	if u.UnitPrice != nil {
		if u.UnitPrice.IsNegative() {
			return i, NewValidationError(ErrCodeInvalidAmount, "unit price cannot be negative")
		}
		next.UnitPrice = *u.UnitPrice
	}
	if u.Description != nil {
		if strings.TrimSpace(*u.Description) == "" {
			return i, NewValidationError(ErrCodeMissingRequired, "description cannot be empty")
		}
		next.Description = *u.Description
	}
	return next, nil
}

func validateQuantity(q int) error {
	if q <= 0 {
		return NewValidationError(ErrCodeValidation, fmt.Sprintf("quantity must be greater than zero, got %d", q))
	}
	return nil
}
