package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/internal/placement"
	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	mu     sync.Mutex
	events []enums.OutboxEventType
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.EventType)
	return nil
}

func (s *stubOutboxPublisher) count(eventType enums.OutboxEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, emitted := range s.events {
		if emitted == eventType {
			n++
		}
	}
	return n
}

type stubRouter struct {
	outcomes map[string]placement.Outcome
	panicFor string
}

func (s *stubRouter) Place(ctx context.Context, order *models.RetailerOrder, items []models.OrderItem) placement.Outcome {
	if s.panicFor != "" && order.RetailerID == s.panicFor {
		panic("connector exploded")
	}
	return s.outcomes[order.RetailerID]
}

func newTestDispatcher(t *testing.T, repo Repository, router orderPlacer, publisher outboxPublisher) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(stubTxRunner{}, repo, router, publisher, nil, nil)
	require.NoError(t, err)
	return dispatcher
}

func TestPlaceAllSettlesEveryOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now()
	placed := seedOrder(t, repo, userID, "acmehome", enums.OrderStatusPending, enums.PlacementMethodAPI, now)
	failed := seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodAPI, now)
	fellBack := seedOrder(t, repo, userID, "summitgear", enums.OrderStatusPending, enums.PlacementMethodHeadless, now)
	manual := seedOrder(t, repo, userID, "northtrail", enums.OrderStatusPending, enums.PlacementMethodManual, now)

	tracking := "1Z999"
	router := &stubRouter{outcomes: map[string]placement.Outcome{
		"acmehome": {
			Placed:   true,
			Method:   enums.PlacementMethodAPI,
			Attempts: 1,
			Result: &retailers.OrderResult{
				RetailerOrderNumber: "AH-778",
				TrackingNumber:      &tracking,
			},
		},
		"bricker": {
			Placed:        false,
			Method:        enums.PlacementMethodAPI,
			Attempts:      1,
			FailureReason: "access token expired",
		},
		"summitgear": {
			Placed:         false,
			RequiresManual: true,
			Method:         enums.PlacementMethodManual,
			Attempts:       1,
			FailureReason:  "bot detection triggered",
		},
		"northtrail": {
			Placed:         false,
			RequiresManual: true,
			Method:         enums.PlacementMethodManual,
		},
	}}
	publisher := &stubOutboxPublisher{}
	dispatcher := newTestDispatcher(t, repo, router, publisher)

	reports := dispatcher.PlaceAll(ctx, []models.RetailerOrder{*placed, *failed, *fellBack, *manual})
	require.Len(t, reports, 4)

	byRetailer := map[string]PlacementReport{}
	for _, report := range reports {
		byRetailer[report.RetailerID] = report
	}
	assert.True(t, byRetailer["acmehome"].Placed)
	assert.False(t, byRetailer["bricker"].Placed)
	assert.False(t, byRetailer["bricker"].RequiresManual)
	assert.Equal(t, enums.PlacementMethodAPI, byRetailer["bricker"].Method)
	assert.Equal(t, "access token expired", byRetailer["bricker"].Reason)
	assert.True(t, byRetailer["summitgear"].RequiresManual)
	assert.Equal(t, enums.PlacementMethodManual, byRetailer["summitgear"].Method)
	assert.False(t, byRetailer["northtrail"].Placed)
	assert.True(t, byRetailer["northtrail"].RequiresManual)
	assert.Empty(t, byRetailer["northtrail"].Reason)

	placedRow, err := repo.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, placedRow.Status)
	require.NotNil(t, placedRow.RetailerOrderNumber)
	assert.Equal(t, "AH-778", *placedRow.RetailerOrderNumber)
	require.NotNil(t, placedRow.TrackingNumber)
	assert.Equal(t, "1Z999", *placedRow.TrackingNumber)
	assert.NotNil(t, placedRow.PlacedAt)
	assert.Equal(t, 1, placedRow.PlacementAttempts)

	// The api failure is terminal; it keeps its tier and never joins the
	// manual queue.
	failedRow, err := repo.FindByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, failedRow.Status)
	assert.Equal(t, enums.PlacementMethodAPI, failedRow.PlacementMethod)
	assert.Equal(t, 1, failedRow.PlacementAttempts)
	require.NotNil(t, failedRow.LastPlacementError)
	assert.Equal(t, "access token expired", *failedRow.LastPlacementError)

	fellBackRow, err := repo.FindByID(ctx, fellBack.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, fellBackRow.Status)
	assert.Equal(t, enums.PlacementMethodManual, fellBackRow.PlacementMethod)
	require.NotNil(t, fellBackRow.LastPlacementError)
	assert.Equal(t, "bot detection triggered", *fellBackRow.LastPlacementError)

	manualRow, err := repo.FindByID(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, manualRow.Status)
	assert.Equal(t, enums.PlacementMethodManual, manualRow.PlacementMethod)
	assert.Nil(t, manualRow.LastPlacementError)

	assert.Equal(t, 1, publisher.count(enums.EventOrderPlaced))
	assert.Equal(t, 2, publisher.count(enums.EventOrderPlacementError))
	assert.Equal(t, 2, publisher.count(enums.EventOrderManualQueued))
}

func TestPlaceAllRecoversFromConnectorPanic(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), "bricker", enums.OrderStatusPending, enums.PlacementMethodAPI, time.Now())

	router := &stubRouter{panicFor: "bricker"}
	publisher := &stubOutboxPublisher{}
	dispatcher := newTestDispatcher(t, repo, router, publisher)

	reports := dispatcher.PlaceAll(ctx, []models.RetailerOrder{*order})
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Placed)
	assert.True(t, reports[0].RequiresManual)
	assert.Equal(t, enums.PlacementMethodManual, reports[0].Method)
	assert.Contains(t, reports[0].Reason, "placement panic")

	row, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, row.Status)
	assert.Equal(t, enums.PlacementMethodManual, row.PlacementMethod)
	require.NotNil(t, row.LastPlacementError)
	assert.Contains(t, *row.LastPlacementError, "placement panic")
	assert.Equal(t, 1, publisher.count(enums.EventOrderManualQueued))
}

func TestNewOrderNumberFormat(t *testing.T) {
	number := NewOrderNumber("CC")
	assert.Regexp(t, `^CC-[0-9A-F]{8}$`, number)
	assert.NotEqual(t, number, NewOrderNumber("CC"))
}
