package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/internal/placement"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/metrics"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderPlacer interface {
	Place(ctx context.Context, order *models.RetailerOrder, items []models.OrderItem) placement.Outcome
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewOrderNumber builds a customer-facing order number with the configured
// prefix, e.g. CC-9F1B24A0.
func NewOrderNumber(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(raw[:8]))
}

// PlacementReport summarizes how one order settled during fan-out. Each
// order lands in exactly one of three states: placed, waiting in the manual
// queue (RequiresManual), or failed.
type PlacementReport struct {
	OrderID        uuid.UUID
	RetailerID     string
	Placed         bool
	RequiresManual bool
	Method         enums.PlacementMethod
	Reason         string
}

// Dispatcher fans a session's orders out to their retailers. Every order is
// driven to a settled state; one retailer's failure never short-circuits
// the others.
type Dispatcher struct {
	tx      txRunner
	repo    Repository
	router  orderPlacer
	outbox  outboxPublisher
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewDispatcher builds the placement dispatcher.
func NewDispatcher(tx txRunner, repo Repository, router orderPlacer, publisher outboxPublisher, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if router == nil {
		return nil, fmt.Errorf("placement router required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Dispatcher{
		tx:      tx,
		repo:    repo,
		router:  router,
		outbox:  publisher,
		metrics: checkoutMetrics,
		logg:    logg,
	}, nil
}

// PlaceAll places every order concurrently and waits for all of them to
// settle before returning.
func (d *Dispatcher) PlaceAll(ctx context.Context, orderRows []models.RetailerOrder) []PlacementReport {
	reports := make([]PlacementReport, len(orderRows))

	var wg sync.WaitGroup
	for i := range orderRows {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			reports[idx] = d.placeOne(ctx, &orderRows[idx])
		}(i)
	}
	wg.Wait()

	var failures error
	for _, report := range reports {
		if !report.Placed && report.Reason != "" {
			failures = multierr.Append(failures, fmt.Errorf("%s (%s): %s", report.OrderID, report.RetailerID, report.Reason))
		}
	}
	if failures != nil && d.logg != nil {
		logCtx := d.logg.WithField(ctx, "failures", failures.Error())
		d.logg.Warn(logCtx, "some orders did not place automatically")
	}
	return reports
}

func (d *Dispatcher) placeOne(ctx context.Context, order *models.RetailerOrder) (report PlacementReport) {
	report = PlacementReport{OrderID: order.ID, RetailerID: order.RetailerID}

	// A panicking connector settles its own order as a manual fallback
	// instead of taking down the whole fan-out.
	defer func() {
		if recovered := recover(); recovered != nil {
			report.Placed = false
			report.RequiresManual = true
			report.Method = enums.PlacementMethodManual
			report.Reason = fmt.Sprintf("placement panic: %v", recovered)
			_ = d.settleManual(ctx, order, placement.Outcome{
				Method:         enums.PlacementMethodManual,
				RequiresManual: true,
				Attempts:       1,
				FailureReason:  report.Reason,
			})
		}
	}()

	outcome := d.router.Place(ctx, order, order.Items)
	report.Method = outcome.Method
	report.Placed = outcome.Placed
	report.RequiresManual = outcome.RequiresManual
	report.Reason = outcome.FailureReason

	var settleErr error
	switch {
	case outcome.Placed:
		settleErr = d.settlePlaced(ctx, order, outcome)
	case outcome.RequiresManual:
		settleErr = d.settleManual(ctx, order, outcome)
	default:
		settleErr = d.settleFailed(ctx, order, outcome)
	}
	if settleErr != nil {
		if d.logg != nil {
			d.logg.Error(d.logg.WithField(ctx, "order_id", order.ID.String()), "settle placement outcome", settleErr)
		}
		report.Placed = false
		report.Reason = fmt.Sprintf("settle outcome: %v", settleErr)
	}
	return report
}

func (d *Dispatcher) settlePlaced(ctx context.Context, order *models.RetailerOrder, outcome placement.Outcome) error {
	now := time.Now().UTC()
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)

		updates := map[string]any{
			"status":             enums.OrderStatusPlaced,
			"placed_at":          now,
			"placement_attempts": gorm.Expr("placement_attempts + ?", outcome.Attempts),
		}
		retailerOrderNumber := ""
		if outcome.Result != nil {
			retailerOrderNumber = outcome.Result.RetailerOrderNumber
			if retailerOrderNumber != "" {
				updates["retailer_order_number"] = retailerOrderNumber
			}
			if outcome.Result.TrackingNumber != nil {
				updates["tracking_number"] = *outcome.Result.TrackingNumber
			}
			if outcome.Result.Carrier != nil {
				updates["carrier"] = *outcome.Result.Carrier
			}
			if outcome.Result.EstimatedDelivery != nil {
				updates["estimated_delivery"] = *outcome.Result.EstimatedDelivery
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}

		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateRetailerOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPlacedEvent{
				OrderID:             order.ID,
				SessionID:           order.SessionID,
				RetailerID:          order.RetailerID,
				PlacementMethod:     outcome.Method,
				RetailerOrderNumber: retailerOrderNumber,
				PlacedAt:            now,
			},
			Version: 1,
		})
	})
}

// settleFailed closes out an order whose automated tier errored without a
// manual fallback. The attempt and its reason stay on the row for support.
func (d *Dispatcher) settleFailed(ctx context.Context, order *models.RetailerOrder, outcome placement.Outcome) error {
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)

		updates := map[string]any{"status": enums.OrderStatusFailed}
		if outcome.Attempts > 0 {
			updates["placement_attempts"] = gorm.Expr("placement_attempts + ?", outcome.Attempts)
		}
		if outcome.FailureReason != "" {
			updates["last_placement_error"] = outcome.FailureReason
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}

		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlacementError,
			AggregateType: enums.AggregateRetailerOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPlacementFailedEvent{
				OrderID:    order.ID,
				SessionID:  order.SessionID,
				RetailerID: order.RetailerID,
				Reason:     outcome.FailureReason,
			},
			Version: 1,
		})
	})
}

func (d *Dispatcher) settleManual(ctx context.Context, order *models.RetailerOrder, outcome placement.Outcome) error {
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)

		updates := map[string]any{
			"status":           enums.OrderStatusPending,
			"placement_method": enums.PlacementMethodManual,
		}
		if outcome.Attempts > 0 {
			updates["placement_attempts"] = gorm.Expr("placement_attempts + ?", outcome.Attempts)
		}
		if outcome.FailureReason != "" {
			updates["last_placement_error"] = outcome.FailureReason
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}

		if outcome.FailureReason != "" {
			err := d.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPlacementError,
				AggregateType: enums.AggregateRetailerOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderPlacementFailedEvent{
					OrderID:    order.ID,
					SessionID:  order.SessionID,
					RetailerID: order.RetailerID,
					Reason:     outcome.FailureReason,
				},
				Version: 1,
			})
			if err != nil {
				return err
			}
		}

		d.metrics.IncManualTask("queued")
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderManualQueued,
			AggregateType: enums.AggregateRetailerOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderManualQueuedEvent{
				OrderID:    order.ID,
				RetailerID: order.RetailerID,
				TotalCents: order.TotalCents,
			},
			Version: 1,
		})
	})
}
