package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, retailerID string, status enums.OrderStatus, method enums.PlacementMethod, createdAt time.Time) *models.RetailerOrder {
	t.Helper()
	order := &models.RetailerOrder{
		ID:              uuid.New(),
		UserID:          userID,
		SessionID:       uuid.New(),
		RetailerID:      retailerID,
		OrderNumber:     NewOrderNumber("CC"),
		SubtotalCents:   5000,
		TotalCents:      5000,
		Status:          status,
		PlacementMethod: method,
		CreatedAt:       createdAt,
	}
	created, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestCreateAndFindOrderWithItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), "acmehome", enums.OrderStatusPending, enums.PlacementMethodAPI, time.Now())
	items := []models.OrderItem{
		{OrderID: order.ID, ProductName: "Lamp", SKU: "AH-1", Quantity: 2, UnitPriceCents: 2500, TotalCents: 5000},
	}
	require.NoError(t, repo.CreateOrderItems(ctx, items))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "acmehome", found.RetailerID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Lamp", found.Items[0].ProductName)
}

func TestFindByIDAndUserEnforcesOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), "acmehome", enums.OrderStatusPending, enums.PlacementMethodAPI, time.Now())

	_, err := repo.FindByIDAndUser(ctx, order.ID, uuid.New())
	require.Error(t, err)
}

func TestListPendingManualIsOldestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().Add(-time.Hour)
	older := seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, base)
	newer := seedOrder(t, repo, userID, "northtrail", enums.OrderStatusPending, enums.PlacementMethodManual, base.Add(10*time.Minute))
	seedOrder(t, repo, userID, "acmehome", enums.OrderStatusPlaced, enums.PlacementMethodAPI, base.Add(20*time.Minute))
	seedOrder(t, repo, userID, "acmehome", enums.OrderStatusPending, enums.PlacementMethodAPI, base.Add(30*time.Minute))

	list, err := repo.ListPendingManual(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.Equal(t, older.ID, list.Orders[0].ID)
	assert.Equal(t, newer.ID, list.Orders[1].ID)
	assert.Empty(t, list.NextCursor)
}

func TestListPendingManualPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.ListPendingManual(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListPendingManual(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)
}

func TestFindByOrderNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, time.Now())

	found, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByOrderNumber(ctx, "CC-DOESNOTEXIST")
	require.Error(t, err)
}

func TestPlacedManualTimingsFiltersStatusAndMethod(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now().UTC()
	recent := seedOrder(t, repo, userID, "bricker", enums.OrderStatusPlaced, enums.PlacementMethodManual, now.Add(-2*time.Hour))
	stale := seedOrder(t, repo, userID, "bricker", enums.OrderStatusPlaced, enums.PlacementMethodManual, now.Add(-72*time.Hour))
	api := seedOrder(t, repo, userID, "acmehome", enums.OrderStatusPlaced, enums.PlacementMethodAPI, now.Add(-time.Hour))
	seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, now)

	require.NoError(t, repo.UpdateOrder(ctx, recent.ID, map[string]any{"placed_at": now.Add(-time.Hour)}))
	require.NoError(t, repo.UpdateOrder(ctx, stale.ID, map[string]any{"placed_at": now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.UpdateOrder(ctx, api.ID, map[string]any{"placed_at": now}))

	rows, err := repo.PlacedManualTimings(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.NotNil(t, row.PlacedAt)
	}
}

func TestUpdateOrderUnknownIDReturnsNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateOrder(context.Background(), uuid.New(), map[string]any{"status": enums.OrderStatusPlaced})
	require.Error(t, err)
}

func TestCountByStatusAndMethod(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now()
	seedOrder(t, repo, userID, "acmehome", enums.OrderStatusPlaced, enums.PlacementMethodAPI, now)
	seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, now)
	seedOrder(t, repo, userID, "bricker", enums.OrderStatusPending, enums.PlacementMethodManual, now)

	counts, err := repo.CountByStatusAndMethod(ctx)
	require.NoError(t, err)

	byKey := map[string]int64{}
	for _, row := range counts {
		byKey[row.Status.String()+"/"+row.PlacementMethod.String()] = row.Count
	}
	assert.EqualValues(t, 1, byKey["placed/api"])
	assert.EqualValues(t, 2, byKey["pending/manual"])
}
