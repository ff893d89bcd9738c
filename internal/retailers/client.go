package retailers

import (
	"context"
	"time"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
)

// OrderRequest carries everything a connector needs to place one order.
type OrderRequest struct {
	Order       *models.RetailerOrder
	Items       []models.OrderItem
	AccessToken string
}

// OrderResult reports what the retailer returned for a successful placement.
type OrderResult struct {
	RetailerOrderNumber string
	TrackingNumber      *string
	Carrier             *string
	EstimatedDelivery   *time.Time
}

// APIClient is implemented by connectors for retailers with a direct
// order-submission API.
type APIClient interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// Connector describes one integrated retailer. CheckoutURL is used by
// operator tooling when orders fall through to the manual queue.
type Connector struct {
	ID          string
	DisplayName string
	CheckoutURL string
	API         APIClient
}

// SupportsAPI reports whether the retailer accepts direct API submission.
func (c Connector) SupportsAPI() bool {
	return c.API != nil
}
