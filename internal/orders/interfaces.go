package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
)

// Repository defines persistence operations for retailer orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.RetailerOrder) (*models.RetailerOrder, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.RetailerOrder, error)
	FindByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.RetailerOrder, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.RetailerOrder, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]models.RetailerOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListPendingManual(ctx context.Context, params pagination.Params) (*OrderList, error)
	CountByStatusAndMethod(ctx context.Context) ([]StatusMethodCount, error)
	PlacedManualTimings(ctx context.Context) ([]PlacementTiming, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.RetailerOrder
	NextCursor string
}

// StatusMethodCount aggregates orders by status and placement method.
type StatusMethodCount struct {
	Status          enums.OrderStatus     `gorm:"column:status"`
	PlacementMethod enums.PlacementMethod `gorm:"column:placement_method"`
	Count           int64                 `gorm:"column:count"`
}

// PlacementTiming is the queued/placed timestamp pair for one settled manual
// order, used for queue latency reporting.
type PlacementTiming struct {
	CreatedAt time.Time  `gorm:"column:created_at"`
	PlacedAt  *time.Time `gorm:"column:placed_at"`
}
