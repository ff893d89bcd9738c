package payments

import (
	"context"
	"fmt"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
)

// Coordinator captures payment for sessions and records a transaction row
// for every attempt. Rows are written outside any checkout transaction so
// the reconciliation trail survives regardless of downstream failures.
type Coordinator struct {
	gateway Gateway
	repo    Repository
	logg    *logger.Logger
}

// NewCoordinator builds the payment coordinator.
func NewCoordinator(gateway Gateway, repo Repository, logg *logger.Logger) (*Coordinator, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	return &Coordinator{gateway: gateway, repo: repo, logg: logg}, nil
}

// Capture charges the session's payment method for its total. The returned
// transaction row reflects the attempt either way; the error is non-nil when
// the capture did not succeed.
func (c *Coordinator) Capture(ctx context.Context, session *models.CheckoutSession) (*models.PaymentTransaction, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}

	paymentMethodRef := ""
	if session.PaymentMethodRef != nil {
		paymentMethodRef = *session.PaymentMethodRef
	}

	result, captureErr := c.gateway.Capture(ctx, CaptureRequest{
		SessionID:        session.ID,
		UserID:           session.UserID,
		PaymentMethodRef: paymentMethodRef,
		AmountCents:      session.TotalCents,
		Currency:         session.Currency,
	})

	transaction := &models.PaymentTransaction{
		SessionID:   session.ID,
		UserID:      session.UserID,
		AmountCents: session.TotalCents,
		Currency:    session.Currency,
		Type:        enums.TransactionTypeCharge,
	}
	if captureErr != nil {
		transaction.Status = enums.TransactionStatusFailed
		reason := captureErr.Error()
		transaction.FailureReason = &reason
	} else {
		transaction.Status = enums.TransactionStatusSucceeded
		if result.IntentID != "" {
			intentID := result.IntentID
			transaction.GatewayIntentID = &intentID
		}
		if result.ChargeID != "" {
			chargeID := result.ChargeID
			transaction.GatewayChargeID = &chargeID
		}
	}

	row, writeErr := c.repo.Create(ctx, transaction)
	if writeErr != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "record payment transaction", writeErr)
		}
		if captureErr == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, writeErr, "record payment transaction")
		}
	}

	if captureErr != nil {
		if typed := pkgerrors.As(captureErr); typed != nil {
			return row, captureErr
		}
		return row, pkgerrors.Wrap(pkgerrors.CodePayment, captureErr, "payment capture failed")
	}
	return row, nil
}
