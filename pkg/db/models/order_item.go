package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable line-item snapshot copied from the cart snapshot.
// Later catalog changes never retroactively alter a placed order.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductName    string    `gorm:"column:product_name;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	ProductURL     *string   `gorm:"column:product_url"`
	ImageURL       *string   `gorm:"column:image_url"`
	Size           *string   `gorm:"column:size"`
	Color          *string   `gorm:"column:color"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
