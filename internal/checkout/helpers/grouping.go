package helpers

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

// GroupItemsByRetailer groups the provided cart items by retailer.
func GroupItemsByRetailer(items []models.CartItem) map[string][]models.CartItem {
	grouped := make(map[string][]models.CartItem, len(items))
	for _, item := range items {
		grouped[item.RetailerID] = append(grouped[item.RetailerID], item)
	}
	return grouped
}

// BuildSnapshot freezes the cart into an immutable snapshot. Retailer groups
// come back sorted by retailer id so downstream ordering is deterministic.
func BuildSnapshot(record *models.CartRecord) types.CartSnapshot {
	snapshot := types.CartSnapshot{
		CartID:   record.ID,
		Currency: record.Currency,
	}

	grouped := GroupItemsByRetailer(record.Items)
	retailerIDs := make([]string, 0, len(grouped))
	for retailerID := range grouped {
		retailerIDs = append(retailerIDs, retailerID)
	}
	sort.Strings(retailerIDs)

	for _, retailerID := range retailerIDs {
		group := types.RetailerGroup{RetailerID: retailerID}
		for _, item := range grouped[retailerID] {
			snapshotItem := toSnapshotItem(item)
			group.Items = append(group.Items, snapshotItem)
			group.ItemCount += item.Quantity
			group.SubtotalCents += snapshotItem.TotalCents()
			snapshot.Items = append(snapshot.Items, snapshotItem)
		}
		snapshot.SubtotalCents += group.SubtotalCents
		snapshot.Retailers = append(snapshot.Retailers, group)
	}
	return snapshot
}

// RetailerTotals carries the per-retailer money breakdown used for both the
// session plan and the materialized orders.
type RetailerTotals struct {
	RetailerID    string
	ItemCount     int
	SubtotalCents int
	ShippingCents int
	TaxCents      int
	TotalCents    int
}

// ComputeRetailerTotals prices one retailer group. Tax rounds half up per
// retailer, so the session total is always the exact sum of its orders.
func ComputeRetailerTotals(group types.RetailerGroup, shippingFlatCents int, taxRate decimal.Decimal) RetailerTotals {
	totals := RetailerTotals{
		RetailerID:    group.RetailerID,
		ItemCount:     group.ItemCount,
		SubtotalCents: group.SubtotalCents,
		ShippingCents: shippingFlatCents,
	}
	if taxRate.IsPositive() {
		totals.TaxCents = int(decimal.NewFromInt(int64(group.SubtotalCents)).Mul(taxRate).Round(0).IntPart())
	}
	totals.TotalCents = totals.SubtotalCents + totals.ShippingCents + totals.TaxCents
	return totals
}

func toSnapshotItem(item models.CartItem) types.SnapshotItem {
	snapshotItem := types.SnapshotItem{
		RetailerID:     item.RetailerID,
		ProductName:    item.ProductName,
		SKU:            item.SKU,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
	}
	if item.ProductURL != nil {
		snapshotItem.ProductURL = *item.ProductURL
	}
	if item.ImageURL != nil {
		snapshotItem.ImageURL = *item.ImageURL
	}
	if item.Size != nil {
		snapshotItem.Size = *item.Size
	}
	if item.Color != nil {
		snapshotItem.Color = *item.Color
	}
	return snapshotItem
}
