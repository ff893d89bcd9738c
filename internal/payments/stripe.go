package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	pkgstripe "github.com/crosscartapp/crosscart-backend/pkg/stripe"
)

// StripeIntentClient exposes the subset of Stripe operations required by the
// payment gateway.
type StripeIntentClient interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct{}

// NewStripeIntentClient wraps the provided Stripe client so the gateway can be tested.
func NewStripeIntentClient(api *pkgstripe.Client) StripeIntentClient {
	if api == nil {
		return nil
	}
	return &stripeIntentWrapper{}
}

func (w *stripeIntentWrapper) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

// StripeGateway captures charges through Stripe payment intents.
type StripeGateway struct {
	client StripeIntentClient
}

// NewStripeGateway builds the Stripe-backed payment gateway.
func NewStripeGateway(client StripeIntentClient) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe intent client required")
	}
	return &StripeGateway{client: client}, nil
}

func (g *StripeGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if req.PaymentMethodRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capture amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(req.AmountCents)),
		Currency:      stripe.String(strings.ToLower(req.Currency.String())),
		PaymentMethod: stripe.String(req.PaymentMethodRef),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.AddMetadata("session_id", req.SessionID.String())
	params.AddMetadata("user_id", req.UserID.String())

	intent, err := g.client.Create(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "card declined")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodePayment, fmt.Sprintf("payment intent status %s", intent.Status))
	}

	result := &CaptureResult{IntentID: intent.ID}
	if intent.LatestCharge != nil {
		result.ChargeID = intent.LatestCharge.ID
	}
	return result, nil
}
