package edge

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// StripeGateway implements Gateway with the Stripe API.
type StripeGateway struct {
	api     *client.API
	catalog *billing.Catalog
}

// StripeOption configures a StripeGateway.
type StripeOption func(*stripeConfig)

type stripeConfig struct {
	backends *stripe.Backends
}

// WithBackends overrides the Stripe API backends, e.g. to point at a test server.
func WithBackends(b *stripe.Backends) StripeOption {
	return func(c *stripeConfig) { c.backends = b }
}

// NewStripeGateway creates a gateway using secretKey. catalog maps
// subscription price ids back to plan names.
func NewStripeGateway(secretKey string, catalog *billing.Catalog, opts ...StripeOption) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrStripeKeyMissing
	}
	cfg := &stripeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &StripeGateway{api: client.New(secretKey, cfg.backends), catalog: catalog}, nil
}

// CreateCheckoutSession creates a card, mode=payment checkout session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(item.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", providerError(err)
	}
	return sess.ID, nil
}

// SubscriptionStatus finds the customer by email and its first active subscription.
func (g *StripeGateway) SubscriptionStatus(ctx context.Context, email string) (billing.Status, error) {
	customerID, err := g.customerID(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return billing.Status{}, nil
		}
		return billing.Status{}, err
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.api.Subscriptions.List(params)
	if it.Next() {
		return billing.Status{Subscribed: true, Tier: g.tier(it.Subscription())}, nil
	}
	if err := it.Err(); err != nil {
		return billing.Status{}, providerError(err)
	}
	return billing.Status{}, nil
}

// PortalURL creates a billing portal session for the customer with email.
func (g *StripeGateway) PortalURL(ctx context.Context, email, returnURL string) (string, error) {
	customerID, err := g.customerID(ctx, email)
	if err != nil {
		return "", err
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", providerError(err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) customerID(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", providerError(err)
	}
	return "", ErrCustomerNotFound
}

// tier maps the subscription's price to a catalog plan name, falling back
// to the price nickname.
func (g *StripeGateway) tier(sub *stripe.Subscription) string {
	if sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		if g.catalog != nil {
			if plan, ok := g.catalog.ByPriceID(item.Price.ID); ok {
				return plan.Name
			}
		}
		if item.Price.Nickname != "" {
			return item.Price.Nickname
		}
	}
	return ""
}

// providerError surfaces the Stripe message instead of the raw JSON dump.
func providerError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return errors.New(se.Msg)
	}
	return err
}
