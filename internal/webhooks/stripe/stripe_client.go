package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/modbuspro/license-server/pkg/stripe"
)

// CheckoutLineItemsClient exposes the subset of Stripe operations required by
// the webhook service.
type CheckoutLineItemsClient interface {
	FirstPriceID(ctx context.Context, sessionID string) (string, error)
}

type stripeClientWrapper struct{}

// NewCheckoutClient wraps the provided Stripe client so the webhook service can
// be tested.
func NewCheckoutClient(api *pkgstripe.Client) CheckoutLineItemsClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

// FirstPriceID returns the price ID of the first line item in the checkout
// session. Single-product checkouts carry exactly one line item.
func (w *stripeClientWrapper) FirstPriceID(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := session.ListLineItems(params)
	for iter.Next() {
		item := iter.LineItem()
		if item != nil && item.Price != nil {
			return item.Price.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", err
	}
	return "", nil
}
