package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

const (
	requestBodyReadLimit int64 = 1024

	statusPlaced      = "placed"
	statusBotDetected = "bot_detected"
	statusFailed      = "failed"
)

// ErrBotDetected reports that the retailer's site blocked the automated
// session. Placement must not be retried on the same tier.
var ErrBotDetected = errors.New("retailer bot detection triggered")

var errWorkerURLRequired = errors.New("automation worker url is required")

// Runner submits an order through the headless browser worker fleet.
type Runner interface {
	PlaceOrder(ctx context.Context, req retailers.OrderRequest) (*retailers.OrderResult, error)
}

// HTTPRunner talks to the automation worker over its HTTP API.
type HTTPRunner struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Option configures optional runner behavior.
type Option func(*HTTPRunner)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *HTTPRunner) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewHTTPRunner builds the worker client for the given base URL.
func NewHTTPRunner(baseURL, apiToken string, opts ...Option) (*HTTPRunner, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errWorkerURLRequired
	}

	runner := &HTTPRunner{
		baseURL:    strings.TrimRight(trimmed, "/"),
		apiToken:   strings.TrimSpace(apiToken),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(runner)
		}
	}

	return runner, nil
}

type placementItem struct {
	SKU            string  `json:"sku"`
	ProductURL     *string `json:"product_url,omitempty"`
	Size           *string `json:"size,omitempty"`
	Color          *string `json:"color,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int     `json:"unit_price_cents"`
}

type placementRequest struct {
	RetailerID      string                `json:"retailer_id"`
	OrderNumber     string                `json:"order_number"`
	AccessToken     string                `json:"access_token,omitempty"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Items           []placementItem       `json:"items"`
}

type placementResponse struct {
	Status              string  `json:"status"`
	RetailerOrderNumber string  `json:"retailer_order_number"`
	TrackingNumber      *string `json:"tracking_number"`
	Carrier             *string `json:"carrier"`
	EstimatedDelivery   *string `json:"estimated_delivery"`
	Error               string  `json:"error"`
}

// PlaceOrder drives a headless checkout run for the order.
func (r *HTTPRunner) PlaceOrder(ctx context.Context, req retailers.OrderRequest) (*retailers.OrderResult, error) {
	if r == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "automation runner not configured")
	}
	if req.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	items := make([]placementItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, placementItem{
			SKU:            item.SKU,
			ProductURL:     item.ProductURL,
			Size:           item.Size,
			Color:          item.Color,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	payload, err := json.Marshal(placementRequest{
		RetailerID:      req.Order.RetailerID,
		OrderNumber:     req.Order.OrderNumber,
		AccessToken:     req.AccessToken,
		ShippingAddress: req.Order.ShippingAddress,
		Items:           items,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal placement request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/placements", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build placement request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiToken)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute placement request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "placement request failed")
	}

	var workerResp placementResponse
	if err := json.NewDecoder(resp.Body).Decode(&workerResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode placement response")
	}

	switch workerResp.Status {
	case statusPlaced:
		result := &retailers.OrderResult{
			RetailerOrderNumber: workerResp.RetailerOrderNumber,
			TrackingNumber:      workerResp.TrackingNumber,
			Carrier:             workerResp.Carrier,
		}
		if workerResp.EstimatedDelivery != nil {
			if parsed, parseErr := time.Parse(time.RFC3339, *workerResp.EstimatedDelivery); parseErr == nil {
				result.EstimatedDelivery = &parsed
			}
		}
		return result, nil
	case statusBotDetected:
		return nil, ErrBotDetected
	case statusFailed:
		if workerResp.Error != "" {
			return nil, fmt.Errorf("headless placement failed: %s", workerResp.Error)
		}
		return nil, fmt.Errorf("headless placement failed")
	default:
		return nil, fmt.Errorf("unexpected worker status %q", workerResp.Status)
	}
}
