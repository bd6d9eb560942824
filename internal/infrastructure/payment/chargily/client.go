package chargily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	Name            = "chargily"
	SignatureHeader = "Signature"

	defaultLocale = "en"
	methodCIB     = "cib"
	methodDahabia = "edahabia"
	statusUnknown = "unknown"
	statusPending = "pending"
)

// Client talks to a Chargily-style hosted checkout API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	signer     *payment.Signer
	logger     *slog.Logger
}

func NewClient(cfg config.ChargilyConfig, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		logger.Warn("no API key configured for chargily gateway")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("no webhook secret configured for chargily gateway, every webhook will be rejected")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		signer: payment.NewSigner(cfg.WebhookSecret),
		logger: logger,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) SignatureHeader() string { return SignatureHeader }

// Signer exposes the webhook signer so the reconciler can verify deliveries up front.
func (c *Client) Signer() *payment.Signer { return c.signer }

// CreateCheckout opens a hosted checkout. The returned details stay incomplete until the webhook arrives.
func (c *Client) CreateCheckout(ctx context.Context, req application.PaymentRequest) (domain.PaymentDetails, error) {
	if err := validateRedirects(req); err != nil {
		return domain.PaymentDetails{}, err
	}

	customerID := req.CustomerID
	if customerID == "" && req.Customer != nil {
		id, err := c.CreateCustomer(ctx, req.UserID, *req.Customer)
		if err != nil {
			return domain.PaymentDetails{}, err
		}
		customerID = id
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Payment for invoice %s", req.InvoiceID)
	}
	locale := req.Locale
	if locale == "" {
		locale = defaultLocale
	}

	body := checkoutRequest{
		Amount:          req.Amount.MinorUnits(),
		Currency:        strings.ToLower(req.Amount.Currency()),
		PaymentMethod:   gatewayMethod(req.Method),
		SuccessURL:      req.SuccessURL,
		FailureURL:      req.FailureURL,
		Description:     description,
		Locale:          locale,
		Metadata:        map[string]string{"invoice_id": req.InvoiceID},
		CustomerID:      customerID,
		WebhookEndpoint: req.WebhookEndpoint,
		Items:           req.Items,
	}

	resp, err := sendRequest[checkoutRequest, checkoutResponse](c, ctx, http.MethodPost, c.baseURL+"/checkouts", &body)
	if err != nil {
		return domain.PaymentDetails{}, err
	}
	if resp.CheckoutURL == "" {
		return domain.PaymentDetails{}, domain.NewPaymentProcessingError(req.InvoiceID, "no checkout URL returned from chargily", nil)
	}

	status := resp.Status
	if status == "" {
		status = statusPending
	}

	c.logger.Info("chargily checkout created",
		"invoice_id", req.InvoiceID,
		"transaction_id", resp.ID)

	amount := req.Amount
	return domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:           req.Method,
		Amount:           &amount,
		TransactionID:    resp.ID,
		PaymentReference: resp.CheckoutURL,
		Info: map[string]string{
			"processor":   Name,
			"checkout_id": resp.ID,
			"payment_url": resp.CheckoutURL,
			"status":      status,
		},
	}), nil
}

// CreateCustomer registers the payer and returns the gateway's customer id.
func (c *Client) CreateCustomer(ctx context.Context, userID string, data application.CustomerData) (string, error) {
	name := data.Name
	if name == "" {
		name = "User-" + userID
	}
	body := customerRequest{
		Name:     name,
		Email:    data.Email,
		Phone:    data.Phone,
		Metadata: map[string]string{"user_id": userID},
	}
	if data.Address != "" {
		body.Address = &customerAddress{Country: "DZ", Address: data.Address}
	}

	resp, err := sendRequest[customerRequest, customerResponse](c, ctx, http.MethodPost, c.baseURL+"/customers", &body)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("customer id missing from chargily response")
	}
	return resp.ID, nil
}

func (c *Client) CheckoutStatus(ctx context.Context, checkoutID string) (string, error) {
	endpoint := fmt.Sprintf("%s/checkouts/%s", c.baseURL, url.PathEscape(checkoutID))
	resp, err := sendRequest[any, checkoutResponse](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return statusUnknown, err
	}
	if resp.Status == "" {
		return statusUnknown, nil
	}
	return resp.Status, nil
}

// Refund returns the full amount when amount is nil.
func (c *Client) Refund(ctx context.Context, checkoutID string, amount *domain.Money) error {
	body := refundRequest{CheckoutID: checkoutID}
	if amount != nil {
		units := amount.MinorUnits()
		body.Amount = &units
	}
	_, err := sendRequest[refundRequest, refundResponse](c, ctx, http.MethodPost, c.baseURL+"/refunds", &body)
	return err
}

func (c *Client) CheckoutURL(details domain.PaymentDetails) string {
	info := details.Info()
	if p := info["processor"]; p != "" && !strings.EqualFold(p, Name) {
		return ""
	}
	if ref := details.PaymentReference(); ref != "" {
		return ref
	}
	return info["payment_url"]
}

func validateRedirects(req application.PaymentRequest) error {
	if req.SuccessURL == "" {
		return domain.NewPaymentProcessingError(req.InvoiceID, "success_url is required", nil)
	}
	if req.FailureURL == "" {
		return domain.NewPaymentProcessingError(req.InvoiceID, "failure_url is required", nil)
	}
	return nil
}

func gatewayMethod(m domain.PaymentMethod) string {
	switch m {
	case domain.PaymentMethodCreditCard, domain.PaymentMethodCIB:
		return methodCIB
	default:
		return methodDahabia
	}
}

func sendRequest[Req any, Resp any](c *Client, ctx context.Context, method, endpoint string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var errResp payment.GatewayErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || (errResp.Err == "" && errResp.Message == "") {
			return nil, &payment.GatewayError{
				Gateway:    Name,
				Code:       "http_error",
				Message:    strings.TrimSpace(string(body)),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &payment.GatewayError{
			Gateway:    Name,
			Code:       errResp.Err,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gatewayResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gatewayResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gatewayResp, nil
}
