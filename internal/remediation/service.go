package remediation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/metrics"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox/payloads"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type connectorRegistry interface {
	Lookup(retailerID string) (retailers.Connector, bool)
}

// Service is the operator surface for the manual order queue. The queue is
// derived state: pending orders whose placement method is manual.
type Service interface {
	PendingOrders(ctx context.Context, params pagination.Params) (*orders.OrderList, error)
	Order(ctx context.Context, orderNumber string) (*models.RetailerOrder, error)
	Instructions(ctx context.Context, orderNumber string) (*Checklist, error)
	MarkPlaced(ctx context.Context, orderNumber string, input MarkPlacedInput) (*models.RetailerOrder, error)
	MarkFailed(ctx context.Context, orderNumber string, reason string) (*models.RetailerOrder, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

// Checklist is everything an operator needs to hand-place one order.
type Checklist struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	RetailerID     string          `json:"retailer_id"`
	RetailerName   string          `json:"retailer_name,omitempty"`
	CheckoutURL    string          `json:"checkout_url,omitempty"`
	ShippingLines  []string        `json:"shipping_lines"`
	Items          []ChecklistItem `json:"items"`
	TotalCents     int             `json:"total_cents"`
	Currency       enums.Currency  `json:"currency"`
	LastFailure    string          `json:"last_failure,omitempty"`
	QueuedAt       time.Time       `json:"queued_at"`
	PlacementSteps []string        `json:"placement_steps"`
}

// ChecklistItem is one line the operator adds at the retailer.
type ChecklistItem struct {
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	ProductURL     string `json:"product_url,omitempty"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

// MarkPlacedInput carries the operator's confirmation details.
type MarkPlacedInput struct {
	RetailerOrderNumber string
	TrackingNumber      *string
	Carrier             *string
	EstimatedDelivery   *time.Time
	Notes               *string
}

// Statistics summarizes queue depth, order counts, and placement latency for
// the admin dashboard. PlacedLastDay counts manual orders placed in the last
// 24 hours; the latency average spans every placed manual order.
type Statistics struct {
	QueueDepth       int64            `json:"queue_depth"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByMethod         map[string]int64 `json:"by_method"`
	PlacedLastDay    int64            `json:"placed_last_day"`
	AvgPlacementSecs float64          `json:"avg_placement_seconds"`
}

type service struct {
	tx       txRunner
	repo     orders.Repository
	registry connectorRegistry
	outbox   outboxPublisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService builds the manual remediation service.
func NewService(tx txRunner, repo orders.Repository, registry connectorRegistry, publisher outboxPublisher, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		registry: registry,
		outbox:   publisher,
		metrics:  checkoutMetrics,
		logg:     logg,
	}, nil
}

// PendingOrders lists the manual queue oldest first.
func (s *service) PendingOrders(ctx context.Context, params pagination.Params) (*orders.OrderList, error) {
	return s.repo.ListPendingManual(ctx, params)
}

// Order fetches one manual order by its public order number, queued or not.
func (s *service) Order(ctx context.Context, orderNumber string) (*models.RetailerOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.PlacementMethod != enums.PlacementMethodManual {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) Instructions(ctx context.Context, orderNumber string) (*Checklist, error) {
	order, err := s.loadQueuedOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	checklist := &Checklist{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		RetailerID:    order.RetailerID,
		ShippingLines: order.ShippingAddress.Lines(),
		TotalCents:    order.TotalCents,
		Currency:      order.Currency,
		QueuedAt:      order.CreatedAt,
	}
	if order.LastPlacementError != nil {
		checklist.LastFailure = *order.LastPlacementError
	}
	if s.registry != nil {
		if connector, ok := s.registry.Lookup(order.RetailerID); ok {
			checklist.RetailerName = connector.DisplayName
			checklist.CheckoutURL = connector.CheckoutURL
		}
	}

	for _, item := range order.Items {
		line := ChecklistItem{
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
		if item.ProductURL != nil {
			line.ProductURL = *item.ProductURL
		}
		if item.Size != nil {
			line.Size = *item.Size
		}
		if item.Color != nil {
			line.Color = *item.Color
		}
		checklist.Items = append(checklist.Items, line)
	}

	checklist.PlacementSteps = buildSteps(checklist)
	return checklist, nil
}

// MarkPlaced records a manual placement the operator completed at the
// retailer. The retailer's own order number is mandatory.
func (s *service) MarkPlaced(ctx context.Context, orderNumber string, input MarkPlacedInput) (*models.RetailerOrder, error) {
	retailerOrderNumber := strings.TrimSpace(input.RetailerOrderNumber)
	if retailerOrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailer order number required")
	}

	order, err := s.loadQueuedOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"status":                enums.OrderStatusPlaced,
			"retailer_order_number": retailerOrderNumber,
			"placed_at":             now,
		}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = *input.TrackingNumber
		}
		if input.Carrier != nil {
			updates["carrier"] = *input.Carrier
		}
		if input.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *input.EstimatedDelivery
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}
		return s.emitClosed(ctx, tx, order, enums.OrderStatusPlaced, "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncManualTask("placed")
	if s.logg != nil {
		logCtx := s.logg.WithRetailerID(s.logg.WithField(ctx, "order_id", order.ID.String()), order.RetailerID)
		s.logg.Info(logCtx, "manual order marked placed")
	}
	return s.repo.FindByID(ctx, order.ID)
}

// MarkFailed closes a manual order the operator could not place.
func (s *service) MarkFailed(ctx context.Context, orderNumber string, reason string) (*models.RetailerOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}

	order, err := s.loadQueuedOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"status":               enums.OrderStatusFailed,
			"last_placement_error": reason,
			"placement_attempts":   gorm.Expr("placement_attempts + 1"),
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}
		return s.emitClosed(ctx, tx, order, enums.OrderStatusFailed, reason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncManualTask("failed")
	if s.logg != nil {
		logCtx := s.logg.WithRetailerID(s.logg.WithField(ctx, "order_id", order.ID.String()), order.RetailerID)
		s.logg.Warn(logCtx, "manual order marked failed")
	}
	return s.repo.FindByID(ctx, order.ID)
}

func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := s.repo.CountByStatusAndMethod(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByStatus: make(map[string]int64),
		ByMethod: make(map[string]int64),
	}
	for _, row := range counts {
		stats.ByStatus[row.Status.String()] += row.Count
		stats.ByMethod[row.PlacementMethod.String()] += row.Count
		if row.Status == enums.OrderStatusPending && row.PlacementMethod == enums.PlacementMethodManual {
			stats.QueueDepth += row.Count
		}
	}

	timings, err := s.repo.PlacedManualTimings(ctx)
	if err != nil {
		return nil, err
	}
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	var settled int64
	var totalSecs float64
	for _, timing := range timings {
		if timing.PlacedAt == nil {
			continue
		}
		settled++
		totalSecs += timing.PlacedAt.Sub(timing.CreatedAt).Seconds()
		if timing.PlacedAt.After(dayAgo) {
			stats.PlacedLastDay++
		}
	}
	if settled > 0 {
		stats.AvgPlacementSecs = totalSecs / float64(settled)
	}
	return stats, nil
}

// loadQueuedOrder fetches the order and verifies it is actually sitting in
// the manual queue.
func (s *service) loadQueuedOrder(ctx context.Context, orderNumber string) (*models.RetailerOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending || order.PlacementMethod != enums.PlacementMethodManual {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in the manual queue")
	}
	return order, nil
}

// emitClosed records the queue closure event. At-most-once per order: an
// operator can only close a manual order a single time.
func (s *service) emitClosed(ctx context.Context, tx *gorm.DB, order *models.RetailerOrder, outcome enums.OrderStatus, reason string) error {
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderManualClosed,
		AggregateType: enums.AggregateRetailerOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderManualClosedEvent{
			OrderID:    order.ID,
			RetailerID: order.RetailerID,
			Outcome:    outcome,
			Reason:     reason,
		},
		Version: 1,
	})
}

func buildSteps(checklist *Checklist) []string {
	steps := make([]string, 0, 4)
	if checklist.CheckoutURL != "" {
		steps = append(steps, fmt.Sprintf("Open %s and sign in with the shared operator account", checklist.CheckoutURL))
	} else {
		steps = append(steps, fmt.Sprintf("Open the %s storefront and sign in with the shared operator account", checklist.RetailerID))
	}
	steps = append(steps,
		fmt.Sprintf("Add %d line item(s) to the retailer cart, matching SKU, size, and color exactly", len(checklist.Items)),
		"Ship to the address above; use the company card on file",
		fmt.Sprintf("Confirm the total matches %d cents, then record the retailer order number here", checklist.TotalCents),
	)
	return steps
}
