package paymentmethods

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentmethod"

	pkgstripe "github.com/aaronbui99/storefront-backend/pkg/stripe"
)

// StripeMethodClient exposes the subset of Stripe operations required to
// manage saved payment methods.
type StripeMethodClient interface {
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	GetMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	AttachMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	DetachMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
}

type stripeMethodWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the service can be
// tested.
func NewStripeClient(api *pkgstripe.Client) StripeMethodClient {
	if api == nil {
		return nil
	}
	return &stripeMethodWrapper{}
}

func (w *stripeMethodWrapper) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}

func (w *stripeMethodWrapper) GetMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return paymentmethod.Get(id, params)
}

func (w *stripeMethodWrapper) AttachMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	return paymentmethod.Attach(id, params)
}

func (w *stripeMethodWrapper) DetachMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	return paymentmethod.Detach(id, params)
}
