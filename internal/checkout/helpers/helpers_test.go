package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

func cartFixture() *models.CartRecord {
	size := "M"
	return &models.CartRecord{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Currency: enums.CurrencyUSD,
		Items: []models.CartItem{
			{RetailerID: "northtrail", ProductName: "Trail Jacket", SKU: "NT-9", Size: &size, Quantity: 1, UnitPriceCents: 8900},
			{RetailerID: "acmehome", ProductName: "Desk Lamp", SKU: "AH-1", Quantity: 2, UnitPriceCents: 2500},
			{RetailerID: "acmehome", ProductName: "Throw Pillow", SKU: "AH-2", Quantity: 1, UnitPriceCents: 1500},
		},
	}
}

func TestBuildSnapshotGroupsAndSorts(t *testing.T) {
	record := cartFixture()
	snapshot := BuildSnapshot(record)

	assert.Equal(t, record.ID, snapshot.CartID)
	assert.Equal(t, 16900, snapshot.SubtotalCents)
	require.Len(t, snapshot.Retailers, 2)

	// Sorted by retailer id.
	assert.Equal(t, "acmehome", snapshot.Retailers[0].RetailerID)
	assert.Equal(t, 3, snapshot.Retailers[0].ItemCount)
	assert.Equal(t, 6500, snapshot.Retailers[0].SubtotalCents)
	assert.Equal(t, "northtrail", snapshot.Retailers[1].RetailerID)
	assert.Equal(t, 10400, snapshot.Retailers[1].SubtotalCents)
	assert.Equal(t, "M", snapshot.Retailers[1].Items[0].Size)
}

func TestComputeRetailerTotalsAppliesTaxAndShipping(t *testing.T) {
	group := types.RetailerGroup{RetailerID: "acmehome", ItemCount: 3, SubtotalCents: 6500}
	rate := decimal.RequireFromString("0.0825")

	totals := ComputeRetailerTotals(group, 500, rate)
	assert.Equal(t, 6500, totals.SubtotalCents)
	assert.Equal(t, 500, totals.ShippingCents)
	assert.Equal(t, 536, totals.TaxCents)
	assert.Equal(t, 7536, totals.TotalCents)
}

func TestComputeRetailerTotalsZeroRate(t *testing.T) {
	group := types.RetailerGroup{RetailerID: "acmehome", SubtotalCents: 6500}
	totals := ComputeRetailerTotals(group, 0, decimal.Zero)
	assert.Zero(t, totals.TaxCents)
	assert.Equal(t, 6500, totals.TotalCents)
}

func TestValidateShippingAddress(t *testing.T) {
	valid := types.ShippingAddress{
		Name:     "Jordan Miles",
		Address1: "500 W Madison St",
		City:     "Chicago",
		State:    "IL",
		Zip:      "60661",
		Country:  "US",
	}
	require.NoError(t, ValidateShippingAddress(valid))

	plusFour := valid
	plusFour.Zip = "60661-1234"
	require.NoError(t, ValidateShippingAddress(plusFour))

	badZip := valid
	badZip.Zip = "6066"
	require.Error(t, ValidateShippingAddress(badZip))

	// The zip format check is scoped to US destinations.
	foreign := valid
	foreign.Country = "CA"
	foreign.State = "ON"
	foreign.City = "Toronto"
	foreign.Zip = "M5V 2T6"
	require.NoError(t, ValidateShippingAddress(foreign))

	missingCountry := valid
	missingCountry.Country = " "
	require.Error(t, ValidateShippingAddress(missingCountry))

	missingZip := foreign
	missingZip.Zip = ""
	require.Error(t, ValidateShippingAddress(missingZip))

	missingName := valid
	missingName.Name = " "
	require.Error(t, ValidateShippingAddress(missingName))
}
