package edge

import (
	"context"
	"strings"

	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// DefaultCurrency is applied to items without a currency.
const DefaultCurrency = "usd"

// CheckoutItem is one line item of a checkout session request.
type CheckoutItem struct {
	Name       string `json:"name"`
	Currency   string `json:"currency,omitempty"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

// CheckoutRequest is the create-checkout-session request body.
type CheckoutRequest struct {
	Items      []CheckoutItem `json:"items"`
	SuccessURL string         `json:"successUrl"`
	CancelURL  string         `json:"cancelUrl"`
}

// normalize validates the request and fills default currencies.
func (r *CheckoutRequest) normalize(currency string) error {
	if len(r.Items) == 0 {
		return ErrInvalidItems
	}
	for i := range r.Items {
		item := &r.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || item.Quantity < 1 || item.UnitAmount < 0 {
			return ErrInvalidItems
		}
		item.Currency = strings.ToLower(strings.TrimSpace(item.Currency))
		if item.Currency == "" {
			item.Currency = currency
		}
	}
	return nil
}

// PortalRequest is the customer-portal request body.
type PortalRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// PortalResponse is the customer-portal response body.
type PortalResponse struct {
	URL string `json:"url"`
}

// Gateway is the payment provider behind the functions.
type Gateway interface {
	// CreateCheckoutSession creates a card, one-time payment session and returns its id.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	// SubscriptionStatus resolves the active subscription of the customer with email.
	SubscriptionStatus(ctx context.Context, email string) (billing.Status, error)
	// PortalURL issues a customer portal session for the customer with email.
	PortalURL(ctx context.Context, email, returnURL string) (string, error)
}
