package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// validateCommand turns struct tag failures into a domain validation error naming the first bad field.
func validateCommand(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return domain.NewMissingRequiredFieldError(strings.ToLower(fe.Field()))
		}
		return domain.NewValidationError(
			domain.ErrCodeValidation,
			fmt.Sprintf("field %s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()),
		)
	}
	return domain.NewValidationError(domain.ErrCodeValidation, err.Error())
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func buildItem(cmd ItemCommand, currency string) (domain.InvoiceItem, error) {
	price, err := domain.NewMoney(cmd.UnitPrice, currency)
	if err != nil {
		return domain.InvoiceItem{}, err
	}
	id := cmd.ID
	if id == "" {
		id = uuid.New().String()
	}
	return domain.NewInvoiceItem(id, cmd.ProductID, cmd.Description, cmd.Quantity, price)
}

func optionalMoney(amount *decimal.Decimal, currency string) (*domain.Money, error) {
	if amount == nil {
		return nil, nil
	}
	m, err := domain.NewMoney(*amount, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
