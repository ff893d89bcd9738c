package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
)

// CaptureRequest describes one charge attempt against a stored payment method.
type CaptureRequest struct {
	SessionID        uuid.UUID
	UserID           uuid.UUID
	PaymentMethodRef string
	AmountCents      int
	Currency         enums.Currency
}

// CaptureResult carries the gateway identifiers for a successful capture.
type CaptureResult struct {
	IntentID string
	ChargeID string
}

// Gateway captures payment for a checkout session. Implementations return a
// payment-coded error when the charge is declined.
type Gateway interface {
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
}
