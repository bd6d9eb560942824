package chargily

import "github.com/DanielPopoola/ficmart-invoicing/internal/application"

type checkoutRequest struct {
	Amount          int64                      `json:"amount"`
	Currency        string                     `json:"currency"`
	PaymentMethod   string                     `json:"payment_method"`
	SuccessURL      string                     `json:"success_url"`
	FailureURL      string                     `json:"failure_url"`
	Description     string                     `json:"description"`
	Locale          string                     `json:"locale"`
	Metadata        map[string]string          `json:"metadata"`
	CustomerID      string                     `json:"customer_id,omitempty"`
	WebhookEndpoint string                     `json:"webhook_endpoint,omitempty"`
	Items           []application.CheckoutItem `json:"items,omitempty"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type customerAddress struct {
	Country string `json:"country"`
	State   string `json:"state"`
	Address string `json:"address"`
}

type customerRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Address  *customerAddress  `json:"address,omitempty"`
	Metadata map[string]string `json:"metadata"`
}

type customerResponse struct {
	ID string `json:"id"`
}

type refundRequest struct {
	CheckoutID string `json:"checkout_id"`
	Amount     *int64 `json:"amount,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
