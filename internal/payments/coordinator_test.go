package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	transactions := `
CREATE TABLE IF NOT EXISTS payment_transactions (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  gateway_intent_id TEXT,
  gateway_charge_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  type TEXT NOT NULL DEFAULT 'charge',
  status TEXT NOT NULL,
  failure_reason TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

type stubGateway struct {
	result *CaptureResult
	err    error
	calls  int
}

func (s *stubGateway) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func sessionFixture() *models.CheckoutSession {
	ref := "pm_123"
	return &models.CheckoutSession{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		PaymentMethodRef: &ref,
		TotalCents:       12050,
		Currency:         enums.CurrencyUSD,
	}
}

func TestCoordinatorRecordsSuccessfulCapture(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &stubGateway{result: &CaptureResult{IntentID: "pi_1", ChargeID: "ch_1"}}
	coordinator, err := NewCoordinator(gateway, NewRepository(db), nil)
	require.NoError(t, err)

	session := sessionFixture()
	row, err := coordinator.Capture(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.TransactionStatusSucceeded, row.Status)
	require.NotNil(t, row.GatewayIntentID)
	assert.Equal(t, "pi_1", *row.GatewayIntentID)

	stored, err := NewRepository(db).ListBySession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 12050, stored[0].AmountCents)
}

func TestCoordinatorRecordsDeclinedCapture(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodePayment, "card declined")}
	coordinator, err := NewCoordinator(gateway, NewRepository(db), nil)
	require.NoError(t, err)

	session := sessionFixture()
	row, err := coordinator.Capture(context.Background(), session)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodePayment, appErr.Code())

	require.NotNil(t, row)
	assert.Equal(t, enums.TransactionStatusFailed, row.Status)
	require.NotNil(t, row.FailureReason)
	assert.Contains(t, *row.FailureReason, "card declined")

	// The failed attempt is still persisted.
	stored, listErr := NewRepository(db).ListBySession(context.Background(), session.ID)
	require.NoError(t, listErr)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.TransactionStatusFailed, stored[0].Status)
}

func TestCoordinatorWrapsUncodedGatewayErrors(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &stubGateway{err: context.DeadlineExceeded}
	coordinator, err := NewCoordinator(gateway, NewRepository(db), nil)
	require.NoError(t, err)

	_, err = coordinator.Capture(context.Background(), sessionFixture())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodePayment, appErr.Code())
}
