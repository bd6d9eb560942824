// Package domain holds the invoice aggregate, its money arithmetic and its lifecycle events.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
	StatusOverdue   InvoiceStatus = "OVERDUE"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToUpper(s))
	switch status {
	case StatusPending, StatusPaid, StatusCancelled, StatusOverdue:
		return status, nil
	}
	return "", NewValidationError(ErrCodeValidation, fmt.Sprintf("invalid invoice status: %s", s))
}

func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Outcome distinguishes a state change from an idempotent replay.
type Outcome int

const (
	Applied Outcome = iota + 1
	AlreadyInState
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case AlreadyInState:
		return "already_in_state"
	}
	return "unknown"
}

type Invoice struct {
	ID             string
	OrderID        string
	UserID         string
	Items          []InvoiceItem
	Status         InvoiceStatus
	TaxAmount      Money
	DiscountAmount Money
	PaymentDetails *PaymentDetails
	DueDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	Notes          string

	// Version is bumped by the repository on every successful update.
	Version int

	events []Event
}

type NewInvoiceParams struct {
	ID       string
	OrderID  string
	UserID   string
	Items    []InvoiceItem
	DueDate  time.Time
	Tax      *Money
	Discount *Money
	Notes    string
}

func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if p.ID == "" {
		return nil, NewMissingRequiredFieldError("invoice ID")
	}
	if p.OrderID == "" {
		return nil, NewMissingRequiredFieldError("order ID")
	}
	if p.UserID == "" {
		return nil, NewMissingRequiredFieldError("user ID")
	}
	if len(p.Items) == 0 {
		return nil, NewValidationError(ErrCodeEmptyInvoice, "invoice must have at least one item")
	}

	now := time.Now().UTC()
	if p.DueDate.Before(now) {
		return nil, NewValidationError(ErrCodeInvalidDueDate, "due date cannot be earlier than creation date")
	}

	currency := p.Items[0].UnitPrice.Currency()
	for _, item := range p.Items[1:] {
		if item.UnitPrice.Currency() != currency {
			return nil, NewCurrencyMismatchError(currency, item.UnitPrice.Currency())
		}
	}

	inv := &Invoice{
		ID:             p.ID,
		OrderID:        p.OrderID,
		UserID:         p.UserID,
		Items:          slices.Clone(p.Items),
		Status:         StatusPending,
		TaxAmount:      Zero(currency),
		DiscountAmount: Zero(currency),
		DueDate:        p.DueDate.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Notes:          p.Notes,
	}

	if p.Tax != nil {
		if err := inv.validateAdjustment("tax", *p.Tax); err != nil {
			return nil, err
		}
		inv.TaxAmount = *p.Tax
	}
	if p.Discount != nil {
		if err := inv.validateDiscount(*p.Discount); err != nil {
			return nil, err
		}
		inv.DiscountAmount = *p.Discount
	}

	total := inv.TotalAmount()
	inv.record(InvoiceCreated{
		EventHeader: inv.header(EventInvoiceCreated, now),
		DueDate:     inv.DueDate,
		TotalAmount: total.Amount().StringFixed(minorUnitExponent),
		Currency:    total.Currency(),
	})

	return inv, nil
}

// Reconstitute rebuilds an invoice from storage without validation or events.
func Reconstitute(inv Invoice) *Invoice {
	inv.events = nil
	inv.Items = slices.Clone(inv.Items)
	return &inv
}

func (i *Invoice) Currency() string {
	if len(i.Items) == 0 {
		return i.TaxAmount.Currency()
	}
	return i.Items[0].UnitPrice.Currency()
}

func (i *Invoice) Subtotal() Money {
	total := Zero(i.Currency())
	for _, item := range i.Items {
		total.amount = total.amount.Add(item.Subtotal().amount)
	}
	return total
}

func (i *Invoice) TotalAmount() Money {
	subtotal := i.Subtotal()
	subtotal.amount = subtotal.amount.Add(i.TaxAmount.amount).Sub(i.DiscountAmount.amount)
	return subtotal
}

func (i *Invoice) IsPaid() bool { return i.Status == StatusPaid }

func (i *Invoice) IsCancelled() bool { return i.Status == StatusCancelled }

func (i *Invoice) IsOverdue() bool { return i.Status == StatusOverdue }

func (i *Invoice) IsPending() bool { return i.Status == StatusPending }

func (i *Invoice) FindItem(itemID string) (InvoiceItem, bool) {
	idx := slices.IndexFunc(i.Items, func(it InvoiceItem) bool { return it.ID == itemID })
	if idx < 0 {
		return InvoiceItem{}, false
	}
	return i.Items[idx], true
}

func (i *Invoice) AddItem(item InvoiceItem) error {
	if err := i.ensureMutable("modify items on"); err != nil {
		return err
	}
	if item.UnitPrice.Currency() != i.Currency() {
		return NewCurrencyMismatchError(i.Currency(), item.UnitPrice.Currency())
	}
	if _, exists := i.FindItem(item.ID); exists {
		return NewValidationError(ErrCodeValidation, fmt.Sprintf("item %s already exists on invoice %s", item.ID, i.ID))
	}

	i.Items = append(i.Items, item)
	i.touch()
	return nil
}

func (i *Invoice) RemoveItem(itemID string) error {
	if err := i.ensureMutable("modify items on"); err != nil {
		return err
	}
	idx := slices.IndexFunc(i.Items, func(it InvoiceItem) bool { return it.ID == itemID })
	if idx < 0 {
		return NewItemNotFoundError(i.ID, itemID)
	}
	if len(i.Items) == 1 {
		return NewValidationError(ErrCodeEmptyInvoice, "invoice must have at least one item")
	}

	remaining := slices.Delete(slices.Clone(i.Items), idx, idx+1)
	if err := i.checkDiscountAgainst(remaining); err != nil {
		return err
	}

	i.Items = remaining
	i.touch()
	return nil
}

func (i *Invoice) UpdateItem(itemID string, u ItemUpdate) error {
	if err := i.ensureMutable("modify items on"); err != nil {
		return err
	}
	idx := slices.IndexFunc(i.Items, func(it InvoiceItem) bool { return it.ID == itemID })
	if idx < 0 {
		return NewItemNotFoundError(i.ID, itemID)
	}
	if u.UnitPrice != nil && u.UnitPrice.Currency() != i.Currency() {
		return NewCurrencyMismatchError(i.Currency(), u.UnitPrice.Currency())
	}

	updated, err := i.Items[idx].apply(u)
	if err != nil {
		return err
	}

	next := slices.Clone(i.Items)
	next[idx] = updated
	if err := i.checkDiscountAgainst(next); err != nil {
		return err
	}

	i.Items = next
	i.touch()
	return nil
}

func (i *Invoice) ApplyTax(amount Money) error {
	if err := i.ensureMutable("modify tax on"); err != nil {
		return err
	}
	if err := i.validateAdjustment("tax", amount); err != nil {
		return err
	}
	i.TaxAmount = amount
	i.touch()
	return nil
}

func (i *Invoice) ApplyDiscount(amount Money) error {
	if err := i.ensureMutable("modify discount on"); err != nil {
		return err
	}
	if err := i.validateDiscount(amount); err != nil {
		return err
	}
	i.DiscountAmount = amount
	i.touch()
	return nil
}

func (i *Invoice) AddNotes(notes string) error {
	if strings.TrimSpace(notes) == "" {
		return NewValidationError(ErrCodeMissingRequired, "notes cannot be empty")
	}
	i.Notes = notes
	i.touch()
	return nil
}

// MarkAsPaid transitions to PAID. Re-applying the same transaction to a paid invoice is a no-op.
func (i *Invoice) MarkAsPaid(details PaymentDetails) (Outcome, error) {
	if outcome, err, done := i.checkPayable(details); done {
		return outcome, err
	}
	if !details.IsPaymentComplete() {
		return 0, NewValidationError(ErrCodeIncompletePayment, "payment details are incomplete")
	}

	if err := i.settle(details, time.Now().UTC()); err != nil {
		return 0, err
	}
	return Applied, nil
}

// ProcessPayment stores the details and settles the invoice only once the payment is complete.
func (i *Invoice) ProcessPayment(details PaymentDetails) (Outcome, error) {
	if outcome, err, done := i.checkPayable(details); done {
		return outcome, err
	}

	if !details.IsPaymentComplete() {
		i.PaymentDetails = &details
		i.touch()
		return Applied, nil
	}

	paidAt, _ := details.PaymentDate()
	if err := i.settle(details, paidAt); err != nil {
		return 0, err
	}
	return Applied, nil
}

// Cancel is idempotent on an already cancelled invoice; a paid invoice can never be cancelled.
func (i *Invoice) Cancel(reason string) (Outcome, error) {
	switch i.Status {
	case StatusCancelled:
		return AlreadyInState, nil
	case StatusPaid:
		return 0, NewInvalidStateError(ErrCodeInvoiceAlreadyPaid, fmt.Sprintf("cannot cancel paid invoice %s", i.ID))
	}

	now := time.Now().UTC()
	if err := i.transition(StatusCancelled, now); err != nil {
		return 0, err
	}
	if strings.TrimSpace(reason) != "" {
		i.Notes = reason
	}
	i.record(InvoiceCancelled{
		EventHeader: i.header(EventInvoiceCancelled, now),
		Reason:      reason,
	})
	return Applied, nil
}

func (i *Invoice) MarkAsOverdue() error {
	if i.Status != StatusPending {
		return NewInvalidStateError(
			ErrCodeInvalidTransition,
			fmt.Sprintf("only pending invoices can be marked as overdue, invoice %s is %s", i.ID, i.Status),
		)
	}

	now := time.Now().UTC()
	if now.Before(i.DueDate) {
		return NewInvalidStateError(ErrCodeNotYetDue, fmt.Sprintf("invoice %s is not yet due", i.ID))
	}

	if err := i.transition(StatusOverdue, now); err != nil {
		return err
	}
	i.record(InvoiceOverdue{
		EventHeader: i.header(EventInvoiceOverdue, now),
		DueDate:     i.DueDate,
		DaysOverdue: int(now.Sub(i.DueDate).Hours() / 24),
	})
	return nil
}

// ExtendDueDate moves the due date forward and reopens an overdue invoice whose new due date is in the future.
func (i *Invoice) ExtendDueDate(days int) error {
	if err := i.ensureMutable("modify due date on"); err != nil {
		return err
	}
	if days <= 0 {
		return NewValidationError(ErrCodeInvalidDueDate, "extension days must be positive")
	}

	now := time.Now().UTC()
	i.DueDate = i.DueDate.AddDate(0, 0, days)

	if i.Status == StatusOverdue && i.DueDate.After(now) {
		return i.transition(StatusPending, now)
	}
	i.touch()
	return nil
}

// Events returns collected events without clearing them.
func (i *Invoice) Events() []Event {
	return slices.Clone(i.events)
}

// PullEvents returns collected events in order and clears them.
func (i *Invoice) PullEvents() []Event {
	events := i.events
	i.events = nil
	return events
}

func (i *Invoice) checkPayable(details PaymentDetails) (Outcome, error, bool) {
	switch i.Status {
	case StatusCancelled:
		return 0, NewInvalidStateError(ErrCodeInvoiceCancelled, fmt.Sprintf("cannot pay cancelled invoice %s", i.ID)), true
	case StatusPaid:
		if details.IsPaymentComplete() && i.PaymentDetails != nil &&
			i.PaymentDetails.TransactionID() == details.TransactionID() {
			return AlreadyInState, nil, true
		}
		return 0, NewInvalidStateError(ErrCodeInvoiceAlreadyPaid, fmt.Sprintf("invoice %s is already paid", i.ID)), true
	}
	return 0, nil, false
}

func (i *Invoice) settle(details PaymentDetails, paidAt time.Time) error {
	now := time.Now().UTC()
	if err := i.transition(StatusPaid, now); err != nil {
		return err
	}
	i.PaymentDetails = &details
	i.PaidAt = &paidAt

	amount, ok := details.Amount()
	if !ok {
		amount = i.TotalAmount()
	}
	i.record(InvoicePaid{
		EventHeader:   i.header(EventInvoicePaid, now),
		AmountPaid:    amount.Amount().StringFixed(minorUnitExponent),
		Currency:      amount.Currency(),
		PaymentMethod: details.Method(),
		TransactionID: details.TransactionID(),
	})
	return nil
}

func (i *Invoice) transition(target InvoiceStatus, at time.Time) error {
	if err := i.canTransitionTo(target); err != nil {
		return err
	}
	previous := i.Status
	i.Status = target
	i.UpdatedAt = at
	i.record(InvoiceStatusChanged{
		EventHeader:    i.header(EventInvoiceStatusChanged, at),
		PreviousStatus: previous,
		NewStatus:      target,
	})
	return nil
}

func (i *Invoice) canTransitionTo(target InvoiceStatus) error {
	switch i.Status {
	case StatusPending:
		return i.allow(target, StatusOverdue, StatusPaid, StatusCancelled)
	case StatusOverdue:
		return i.allow(target, StatusPending, StatusPaid, StatusCancelled)
	}
	return NewInvalidTransitionError(i.ID, i.Status, target)
}

func (i *Invoice) allow(target InvoiceStatus, allowed ...InvoiceStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(i.ID, i.Status, target)
}

func (i *Invoice) ensureMutable(action string) error {
	switch i.Status {
	case StatusPaid:
		return NewInvalidStateError(ErrCodeInvoiceAlreadyPaid, fmt.Sprintf("cannot %s paid invoice %s", action, i.ID))
	case StatusCancelled:
		return NewInvalidStateError(ErrCodeInvoiceCancelled, fmt.Sprintf("cannot %s cancelled invoice %s", action, i.ID))
	}
	return nil
}

func (i *Invoice) validateAdjustment(name string, amount Money) error {
	if amount.Currency() != i.Currency() {
		return NewCurrencyMismatchError(i.Currency(), amount.Currency())
	}
	if amount.IsNegative() {
		return NewValidationError(ErrCodeInvalidAmount, fmt.Sprintf("%s amount cannot be negative", name))
	}
	return nil
}

func (i *Invoice) validateDiscount(amount Money) error {
	if err := i.validateAdjustment("discount", amount); err != nil {
		return err
	}
	if amount.Amount().GreaterThan(i.Subtotal().Amount()) {
		return NewValidationError(ErrCodeInvalidDiscount, "discount amount cannot be greater than subtotal")
	}
	return nil
}

func (i *Invoice) checkDiscountAgainst(items []InvoiceItem) error {
	candidate := Invoice{Items: items, TaxAmount: i.TaxAmount}
	if i.DiscountAmount.Amount().GreaterThan(candidate.Subtotal().Amount()) {
		return NewValidationError(ErrCodeInvalidDiscount, "discount amount cannot be greater than subtotal")
	}
	return nil
}

func (i *Invoice) touch() {
	i.UpdatedAt = time.Now().UTC()
}

func (i *Invoice) record(e Event) {
	i.events = append(i.events, e)
}
