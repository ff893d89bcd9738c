package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crosscartapp/crosscart-backend/internal/automation"
	"github.com/crosscartapp/crosscart-backend/internal/retailers"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/metrics"
)

type tokenSource interface {
	Token(ctx context.Context, userID, retailerID string) (string, error)
}

type connectorRegistry interface {
	Lookup(retailerID string) (retailers.Connector, bool)
}

// Outcome reports how a placement attempt ended. RequiresManual marks orders
// that belong in the manual queue: the manual tier itself, plus headless
// failures, which degrade to an operator instead of erroring. An api-tier
// failure is terminal for the attempt; Method stays api and the order is
// reported failed, not queued.
type Outcome struct {
	Placed         bool
	RequiresManual bool
	Method         enums.PlacementMethod
	Result         *retailers.OrderResult
	Attempts       int
	FailureReason  string
}

// Router drives one order through its frozen placement tier. Headless orders
// fall back to the manual queue when automation cannot complete; api orders
// fail in place.
type Router struct {
	registry connectorRegistry
	tokens   tokenSource
	runner   automation.Runner
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewRouter builds the placement router. The automation runner is optional;
// without it the headless tier degrades straight to manual.
func NewRouter(registry connectorRegistry, tokens tokenSource, runner automation.Runner, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("connector registry required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source required")
	}
	return &Router{
		registry: registry,
		tokens:   tokens,
		runner:   runner,
		metrics:  checkoutMetrics,
		logg:     logg,
	}, nil
}

// Place attempts to land the order with its retailer using the order's
// frozen placement method.
func (r *Router) Place(ctx context.Context, order *models.RetailerOrder, items []models.OrderItem) Outcome {
	method := order.PlacementMethod

	var outcome Outcome
	switch method {
	case enums.PlacementMethodAPI:
		outcome = r.placeAPI(ctx, order, items)
	case enums.PlacementMethodHeadless:
		outcome = r.placeHeadless(ctx, order, items)
		if !outcome.Placed {
			outcome.Method = enums.PlacementMethodManual
			outcome.RequiresManual = true
		}
	case enums.PlacementMethodManual:
		outcome = Outcome{Method: enums.PlacementMethodManual, RequiresManual: true}
	default:
		outcome = Outcome{
			Method:         enums.PlacementMethodManual,
			RequiresManual: true,
			FailureReason:  fmt.Sprintf("unknown placement method %q", method),
		}
	}

	r.observe(ctx, order, method, outcome)
	return outcome
}

func (r *Router) placeAPI(ctx context.Context, order *models.RetailerOrder, items []models.OrderItem) Outcome {
	connector, ok := r.registry.Lookup(order.RetailerID)
	if !ok || !connector.SupportsAPI() {
		return Outcome{Method: enums.PlacementMethodAPI, FailureReason: fmt.Sprintf("retailer %s has no api connector", order.RetailerID)}
	}

	token, err := r.tokens.Token(ctx, order.UserID.String(), order.RetailerID)
	if err != nil {
		return Outcome{Method: enums.PlacementMethodAPI, Attempts: 1, FailureReason: fmt.Sprintf("retailer token: %v", err)}
	}

	start := time.Now()
	result, err := connector.API.PlaceOrder(ctx, retailers.OrderRequest{
		Order:       order,
		Items:       items,
		AccessToken: token,
	})
	r.metrics.ObservePlacementDuration(enums.PlacementMethodAPI.String(), time.Since(start))
	if err != nil {
		return Outcome{Method: enums.PlacementMethodAPI, Attempts: 1, FailureReason: fmt.Sprintf("api placement: %v", err)}
	}
	return Outcome{Placed: true, Method: enums.PlacementMethodAPI, Result: result, Attempts: 1}
}

func (r *Router) placeHeadless(ctx context.Context, order *models.RetailerOrder, items []models.OrderItem) Outcome {
	if r.runner == nil {
		return Outcome{FailureReason: "automation runner not configured"}
	}

	token := ""
	if fetched, err := r.tokens.Token(ctx, order.UserID.String(), order.RetailerID); err == nil {
		token = fetched
	}

	start := time.Now()
	result, err := r.runner.PlaceOrder(ctx, retailers.OrderRequest{
		Order:       order,
		Items:       items,
		AccessToken: token,
	})
	r.metrics.ObservePlacementDuration(enums.PlacementMethodHeadless.String(), time.Since(start))
	if err != nil {
		if errors.Is(err, automation.ErrBotDetected) {
			return Outcome{Attempts: 1, FailureReason: "bot detection triggered"}
		}
		return Outcome{Attempts: 1, FailureReason: fmt.Sprintf("headless placement: %v", err)}
	}
	return Outcome{Placed: true, Method: enums.PlacementMethodHeadless, Result: result, Attempts: 1}
}

func (r *Router) observe(ctx context.Context, order *models.RetailerOrder, attempted enums.PlacementMethod, outcome Outcome) {
	outcomeLabel := "success"
	switch {
	case outcome.Placed:
	case outcome.RequiresManual:
		outcomeLabel = "fallback_manual"
	default:
		outcomeLabel = "failed"
	}
	r.metrics.IncPlacementAttempt(order.RetailerID, attempted.String(), outcomeLabel)

	if r.logg == nil {
		return
	}
	fields := map[string]any{
		"order_id":    order.ID.String(),
		"retailer_id": order.RetailerID,
		"method":      attempted.String(),
		"placed":      outcome.Placed,
	}
	if outcome.FailureReason != "" {
		fields["reason"] = outcome.FailureReason
	}
	logCtx := r.logg.WithFields(ctx, fields)
	switch {
	case outcome.Placed:
		r.logg.Info(logCtx, "order placed")
	case outcome.RequiresManual:
		r.logg.Warn(logCtx, "order routed to manual queue")
	default:
		r.logg.Warn(logCtx, "order placement failed")
	}
}
