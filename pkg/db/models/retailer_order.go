package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

// RetailerOrder is the per-retailer order materialized from a session's frozen
// plan. Once created it is mutated by exactly one path: the automated
// placement matching its method, or operator actions for the manual tier.
type RetailerOrder struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	SessionID           uuid.UUID             `gorm:"column:session_id;type:uuid;not null;index"`
	RetailerID          string                `gorm:"column:retailer_id;not null;index"`
	OrderNumber         string                `gorm:"column:order_number;not null;uniqueIndex"`
	RetailerOrderNumber *string               `gorm:"column:retailer_order_number"`
	SubtotalCents       int                   `gorm:"column:subtotal_cents;not null"`
	ShippingCents       int                   `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents            int                   `gorm:"column:tax_cents;not null;default:0"`
	TotalCents          int                   `gorm:"column:total_cents;not null"`
	Currency            enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingAddress     types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Status              enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PlacementMethod     enums.PlacementMethod `gorm:"column:placement_method;type:placement_method;not null"`
	PlacementAttempts   int                   `gorm:"column:placement_attempts;not null;default:0"`
	LastPlacementError  *string               `gorm:"column:last_placement_error"`
	TrackingNumber      *string               `gorm:"column:tracking_number"`
	Carrier             *string               `gorm:"column:carrier"`
	EstimatedDelivery   *time.Time            `gorm:"column:estimated_delivery"`
	Notes               *string               `gorm:"column:notes"`
	PlacedAt            *time.Time            `gorm:"column:placed_at"`
	Items               []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
