package types

import (
	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
)

// SnapshotItem is one cart line frozen at session creation. Later catalog or
// cart changes never alter it.
type SnapshotItem struct {
	RetailerID     string `json:"retailer_id"`
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	ProductURL     string `json:"product_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

// TotalCents returns the extended line price.
func (i SnapshotItem) TotalCents() int {
	return i.UnitPriceCents * i.Quantity
}

// RetailerGroup is the per-retailer slice of a snapshot.
type RetailerGroup struct {
	RetailerID    string         `json:"retailer_id"`
	ItemCount     int            `json:"item_count"`
	SubtotalCents int            `json:"subtotal_cents"`
	Items         []SnapshotItem `json:"items"`
}

// CartSnapshot is the immutable copy of a shopper's cart taken once when a
// checkout session is created.
type CartSnapshot struct {
	CartID        uuid.UUID       `json:"cart_id"`
	Currency      enums.Currency  `json:"currency"`
	SubtotalCents int             `json:"subtotal_cents"`
	Items         []SnapshotItem  `json:"items"`
	Retailers     []RetailerGroup `json:"retailers"`
}

// RetailerPlanEntry is one frozen row of a session's processing plan.
type RetailerPlanEntry struct {
	RetailerID      string                `json:"retailer_id"`
	ItemCount       int                   `json:"item_count"`
	SubtotalCents   int                   `json:"subtotal_cents"`
	Status          enums.OrderStatus     `json:"status"`
	PlacementMethod enums.PlacementMethod `json:"placement_method"`
}

// RetailerPlan is the ordered set of plan entries computed once at initiation.
type RetailerPlan []RetailerPlanEntry

// SubtotalCents sums the plan's per-retailer subtotals.
func (p RetailerPlan) SubtotalCents() int {
	total := 0
	for _, entry := range p {
		total += entry.SubtotalCents
	}
	return total
}
