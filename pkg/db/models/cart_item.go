package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a shopper's cart, scoped to a single retailer.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	RetailerID     string    `gorm:"column:retailer_id;not null;index"`
	ProductName    string    `gorm:"column:product_name;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	ProductURL     *string   `gorm:"column:product_url"`
	ImageURL       *string   `gorm:"column:image_url"`
	Size           *string   `gorm:"column:size"`
	Color          *string   `gorm:"column:color"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
