package payment

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

// Gateway is one external checkout provider.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req application.PaymentRequest) (domain.PaymentDetails, error)
	CheckoutStatus(ctx context.Context, checkoutID string) (string, error)
	Refund(ctx context.Context, checkoutID string, amount *domain.Money) error
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*application.NormalizedWebhook, error)
	// CheckoutURL returns the hosted page the payer is redirected to, or "" if details are not this gateway's.
	CheckoutURL(details domain.PaymentDetails) string
}

// HeaderSigned gateways sign their webhooks in a dedicated header; its presence identifies the sender.
type HeaderSigned interface {
	SignatureHeader() string
}

// Registry is the fixed set of gateways the process was started with.
type Registry struct {
	gateways    map[string]Gateway
	order       []string
	methods     map[domain.PaymentMethod]string
	defaultName string
}

// NewRegistry registers gateways under their lower-cased names. The first gateway is the default.
func NewRegistry(gateways ...Gateway) (*Registry, error) {
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one payment gateway is required")
	}

	r := &Registry{
		gateways: make(map[string]Gateway, len(gateways)),
		methods:  make(map[domain.PaymentMethod]string),
	}
	for _, gw := range gateways {
		name := strings.ToLower(gw.Name())
		if _, dup := r.gateways[name]; dup {
			return nil, fmt.Errorf("payment gateway %q registered twice", name)
		}
		r.gateways[name] = gw
		r.order = append(r.order, name)
	}
	r.defaultName = r.order[0]
	return r, nil
}

// Route sends a payment method to a named gateway.
func (r *Registry) Route(method domain.PaymentMethod, gateway string) error {
	name := strings.ToLower(gateway)
	if _, ok := r.gateways[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGateway, gateway)
	}
	r.methods[method] = name
	return nil
}

func (r *Registry) SetDefault(gateway string) error {
	name := strings.ToLower(gateway)
	if _, ok := r.gateways[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGateway, gateway)
	}
	r.defaultName = name
	return nil
}

func (r *Registry) Get(name string) (Gateway, bool) {
	gw, ok := r.gateways[strings.ToLower(name)]
	return gw, ok
}

// Names lists gateways in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Select resolves the explicit override first, then the method map, then the default.
// An override naming an unregistered gateway falls through to the next rule.
func (r *Registry) Select(override string, method domain.PaymentMethod) Gateway {
	if gw, ok := r.Get(override); ok {
		return gw
	}
	if name, ok := r.methods[method]; ok {
		return r.gateways[name]
	}
	return r.gateways[r.defaultName]
}
