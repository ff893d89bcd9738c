package remediation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingPublisher struct {
	events []outbox.DomainEvent
}

func (r *recordingPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range r.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return r.Emit(ctx, tx, event)
}

func setupRemediationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	retailerOrders := `
CREATE TABLE IF NOT EXISTS retailer_orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  retailer_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  retailer_order_number TEXT,
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  shipping_address TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  placement_method TEXT NOT NULL,
  placement_attempts INTEGER NOT NULL DEFAULT 0,
  last_placement_error TEXT,
  tracking_number TEXT,
  carrier TEXT,
  estimated_delivery DATETIME,
  notes TEXT,
  placed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  product_url TEXT,
  image_url TEXT,
  size TEXT,
  color TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(retailerOrders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

type remediationFixture struct {
	service   Service
	repo      orders.Repository
	publisher *recordingPublisher
}

func setupRemediationTest(t *testing.T) *remediationFixture {
	t.Helper()

	db := setupRemediationTestDB(t)
	repo := orders.NewRepository(db)

	registry := retailers.NewRegistry()
	require.NoError(t, registry.Register(retailers.Connector{
		ID:          "bricker",
		DisplayName: "Bricker & Sons",
		CheckoutURL: "https://www.bricker.example/checkout",
	}))

	publisher := &recordingPublisher{}
	service, err := NewService(stubTxRunner{}, repo, registry, publisher, nil, nil)
	require.NoError(t, err)

	return &remediationFixture{service: service, repo: repo, publisher: publisher}
}

func (f *remediationFixture) seedQueuedOrder(t *testing.T, retailerID string) *models.RetailerOrder {
	t.Helper()
	ctx := context.Background()

	failure := "access token expired"
	order, err := f.repo.CreateOrder(ctx, &models.RetailerOrder{
		UserID:             uuid.New(),
		SessionID:          uuid.New(),
		RetailerID:         retailerID,
		OrderNumber:        orders.NewOrderNumber("CC"),
		SubtotalCents:      5000,
		ShippingCents:      500,
		TaxCents:           400,
		TotalCents:         5900,
		Currency:           enums.CurrencyUSD,
		ShippingAddress:    types.ShippingAddress{Name: "Jordan Miles", Address1: "500 W Madison St", City: "Chicago", State: "IL", Zip: "60661", Country: "US"},
		Status:             enums.OrderStatusPending,
		PlacementMethod:    enums.PlacementMethodManual,
		LastPlacementError: &failure,
	})
	require.NoError(t, err)

	size := "M"
	require.NoError(t, f.repo.CreateOrderItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductName: "Trail Jacket", SKU: "NT-9", Size: &size, Quantity: 1, UnitPriceCents: 5000, TotalCents: 5000},
	}))
	return order
}

func (f *remediationFixture) closedEvents() []outbox.DomainEvent {
	closed := make([]outbox.DomainEvent, 0, len(f.publisher.events))
	for _, event := range f.publisher.events {
		if event.EventType == enums.EventOrderManualClosed {
			closed = append(closed, event)
		}
	}
	return closed
}

func TestPendingOrdersListsQueue(t *testing.T) {
	fixture := setupRemediationTest(t)
	fixture.seedQueuedOrder(t, "bricker")
	fixture.seedQueuedOrder(t, "northtrail")

	list, err := fixture.service.PendingOrders(context.Background(), pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestInstructionsBuildChecklist(t *testing.T) {
	fixture := setupRemediationTest(t)
	order := fixture.seedQueuedOrder(t, "bricker")

	checklist, err := fixture.service.Instructions(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	assert.Equal(t, order.OrderNumber, checklist.OrderNumber)
	assert.Equal(t, "Bricker & Sons", checklist.RetailerName)
	assert.Equal(t, "https://www.bricker.example/checkout", checklist.CheckoutURL)
	assert.Equal(t, "access token expired", checklist.LastFailure)
	assert.Equal(t, 5900, checklist.TotalCents)
	require.Len(t, checklist.Items, 1)
	assert.Equal(t, "NT-9", checklist.Items[0].SKU)
	assert.Equal(t, "M", checklist.Items[0].Size)
	assert.Contains(t, checklist.ShippingLines, "Chicago, IL 60661")
	require.NotEmpty(t, checklist.PlacementSteps)
	assert.Contains(t, checklist.PlacementSteps[0], "bricker.example")
}

func TestInstructionsRejectNonQueuedOrder(t *testing.T) {
	fixture := setupRemediationTest(t)
	order := fixture.seedQueuedOrder(t, "bricker")
	require.NoError(t, fixture.repo.UpdateOrder(context.Background(), order.ID, map[string]any{
		"status": enums.OrderStatusPlaced,
	}))

	_, err := fixture.service.Instructions(context.Background(), order.OrderNumber)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestMarkPlacedClosesQueueEntry(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	order := fixture.seedQueuedOrder(t, "bricker")

	tracking := "1Z999"
	updated, err := fixture.service.MarkPlaced(ctx, order.OrderNumber, MarkPlacedInput{
		RetailerOrderNumber: "BRK-1001",
		TrackingNumber:      &tracking,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPlaced, updated.Status)
	require.NotNil(t, updated.RetailerOrderNumber)
	assert.Equal(t, "BRK-1001", *updated.RetailerOrderNumber)
	require.NotNil(t, updated.TrackingNumber)
	assert.Equal(t, "1Z999", *updated.TrackingNumber)
	assert.NotNil(t, updated.PlacedAt)
	assert.WithinDuration(t, time.Now(), *updated.PlacedAt, time.Minute)

	closed := fixture.closedEvents()
	require.Len(t, closed, 1)
	assert.Equal(t, order.ID, closed[0].AggregateID)
}

func TestMarkPlacedRequiresRetailerOrderNumber(t *testing.T) {
	fixture := setupRemediationTest(t)
	order := fixture.seedQueuedOrder(t, "bricker")

	_, err := fixture.service.MarkPlaced(context.Background(), order.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "  "})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestMarkPlacedTwiceConflicts(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	order := fixture.seedQueuedOrder(t, "bricker")

	_, err := fixture.service.MarkPlaced(ctx, order.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "BRK-1001"})
	require.NoError(t, err)

	_, err = fixture.service.MarkPlaced(ctx, order.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "BRK-1002"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestMarkFailedClosesQueueEntry(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	order := fixture.seedQueuedOrder(t, "bricker")

	updated, err := fixture.service.MarkFailed(ctx, order.OrderNumber, "item out of stock")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, updated.Status)
	require.NotNil(t, updated.LastPlacementError)
	assert.Equal(t, "item out of stock", *updated.LastPlacementError)
	assert.Equal(t, 1, updated.PlacementAttempts)

	require.Len(t, fixture.closedEvents(), 1)

	_, err = fixture.service.MarkFailed(ctx, order.OrderNumber, "again")
	require.Error(t, err)
}

func TestOrderLookupByNumber(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	order := fixture.seedQueuedOrder(t, "bricker")

	found, err := fixture.service.Order(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = fixture.service.Order(ctx, "CC-MISSING1")
	require.Error(t, err)
}

func TestOrderHidesAutomatedOrders(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	order := fixture.seedQueuedOrder(t, "acmehome")
	require.NoError(t, fixture.repo.UpdateOrder(ctx, order.ID, map[string]any{
		"placement_method": enums.PlacementMethodAPI,
	}))

	_, err := fixture.service.Order(ctx, order.OrderNumber)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestStatisticsCountsQueueDepth(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	fixture.seedQueuedOrder(t, "bricker")
	fixture.seedQueuedOrder(t, "northtrail")
	order := fixture.seedQueuedOrder(t, "bricker")
	_, err := fixture.service.MarkPlaced(ctx, order.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "BRK-1"})
	require.NoError(t, err)

	stats, err := fixture.service.Statistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.QueueDepth)
	assert.EqualValues(t, 2, stats.ByStatus["pending"])
	assert.EqualValues(t, 1, stats.ByStatus["placed"])
	assert.EqualValues(t, 3, stats.ByMethod["manual"])
	assert.EqualValues(t, 1, stats.PlacedLastDay)
	assert.GreaterOrEqual(t, stats.AvgPlacementSecs, 0.0)
}

func TestStatisticsLatencySpansAllPlacedOrders(t *testing.T) {
	fixture := setupRemediationTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := fixture.seedQueuedOrder(t, "bricker")
	_, err := fixture.service.MarkPlaced(ctx, recent.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "BRK-1"})
	require.NoError(t, err)

	stale := fixture.seedQueuedOrder(t, "bricker")
	_, err = fixture.service.MarkPlaced(ctx, stale.OrderNumber, MarkPlacedInput{RetailerOrderNumber: "BRK-2"})
	require.NoError(t, err)
	require.NoError(t, fixture.repo.UpdateOrder(ctx, stale.ID, map[string]any{
		"created_at": now.Add(-72 * time.Hour),
		"placed_at":  now.Add(-48 * time.Hour),
	}))

	stats, err := fixture.service.Statistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.PlacedLastDay)
	// The older order took a day to place and pulls the all-time mean well
	// past anything the last-24h window alone could produce.
	assert.Greater(t, stats.AvgPlacementSecs, float64(11*60*60))
}
