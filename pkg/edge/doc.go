// Package edge serves the billing functions the dashboard calls:
// create-checkout-session, check-subscription and customer-portal.
//
// Bodies are plain JSON objects ({"id":...}, {"url":...}, {"error":...}).
// The subscription and portal functions require a bearer access token.
// StripeGateway talks to Stripe; OfflineGateway stands in when no key is
// configured.
package edge
