package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

// CheckoutSession coordinates one multi-retailer checkout attempt. The cart
// snapshot and the per-retailer plan are frozen at creation and never
// re-derived from the live cart. Sessions are retained as audit records.
type CheckoutSession struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token            string                 `gorm:"column:token;not null;uniqueIndex"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CartSnapshot     types.CartSnapshot     `gorm:"column:cart_snapshot;type:jsonb;serializer:json"`
	Plan             types.RetailerPlan     `gorm:"column:plan;type:jsonb;serializer:json"`
	ShippingAddress  *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethodRef *string                `gorm:"column:payment_method_ref"`
	SubtotalCents    int                    `gorm:"column:subtotal_cents;not null"`
	ShippingCents    int                    `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents         int                    `gorm:"column:tax_cents;not null;default:0"`
	TotalCents       int                    `gorm:"column:total_cents;not null"`
	Currency         enums.Currency         `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status           enums.SessionStatus    `gorm:"column:status;type:session_status;not null;default:'pending'"`
	ErrorMessage     *string                `gorm:"column:error_message"`
	ExpiresAt        time.Time              `gorm:"column:expires_at;not null"`
	CompletedAt      *time.Time             `gorm:"column:completed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
