package edge

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// OfflineGateway is a Gateway for local development without a Stripe key.
// Checkout sessions get random ids, nobody is subscribed and no customer
// portal exists.
type OfflineGateway struct{}

func (OfflineGateway) CreateCheckoutSession(context.Context, CheckoutRequest) (string, error) {
	return "cs_offline_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}

func (OfflineGateway) SubscriptionStatus(context.Context, string) (billing.Status, error) {
	return billing.Status{}, nil
}

func (OfflineGateway) PortalURL(context.Context, string, string) (string, error) {
	return "", ErrCustomerNotFound
}
