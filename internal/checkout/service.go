package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/internal/cart"
	"github.com/crosscartapp/crosscart-backend/internal/checkout/helpers"
	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/metrics"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox"
	"github.com/crosscartapp/crosscart-backend/pkg/outbox/payloads"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentCapturer interface {
	Capture(ctx context.Context, session *models.CheckoutSession) (*models.PaymentTransaction, error)
}

type orderDispatcher interface {
	PlaceAll(ctx context.Context, orderRows []models.RetailerOrder) []orders.PlacementReport
}

type tierResolver interface {
	MethodFor(retailerID string) enums.PlacementMethod
}

// Service orchestrates the checkout lifecycle: freezing the cart into a
// session, capturing payment, and fanning orders out to retailers.
type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*models.CheckoutSession, error)
	GetSession(ctx context.Context, userID uuid.UUID, token string) (*models.CheckoutSession, error)
	SessionOrders(ctx context.Context, userID uuid.UUID, token string) ([]models.RetailerOrder, error)
	UpdateShipping(ctx context.Context, userID uuid.UUID, token string, address types.ShippingAddress) (*models.CheckoutSession, error)
	UpdatePayment(ctx context.Context, userID uuid.UUID, token string, paymentMethodRef string) (*models.CheckoutSession, error)
	Place(ctx context.Context, userID uuid.UUID, token string) (*PlaceResult, error)
}

// InitiateInput carries the shopper's choices known at initiation. Both
// fields are optional; the shopper can supply them later through the
// shipping and payment amendments, but placement requires both.
type InitiateInput struct {
	ShippingAddress  *types.ShippingAddress
	PaymentMethodRef string
}

// PlaceResult is the settled outcome of placing a session.
type PlaceResult struct {
	Session *models.CheckoutSession
	Orders  []models.RetailerOrder
	Reports []orders.PlacementReport
}

type service struct {
	tx         txRunner
	sessions   Repository
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	payment    paymentCapturer
	dispatcher orderDispatcher
	tiers      tierResolver
	outbox     outboxPublisher
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	cfg        config.CheckoutConfig
	taxRate    decimal.Decimal
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	sessions Repository,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	payment paymentCapturer,
	dispatcher orderDispatcher,
	tiers tierResolver,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if payment == nil {
		return nil, fmt.Errorf("payment coordinator required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("order dispatcher required")
	}
	if tiers == nil {
		return nil, fmt.Errorf("tier config required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}

	taxRate := decimal.Zero
	if strings.TrimSpace(cfg.TaxRate) != "" {
		parsed, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("tax rate: %w", err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("tax rate must not be negative")
		}
		taxRate = parsed
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}

	return &service{
		tx:         tx,
		sessions:   sessions,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		payment:    payment,
		dispatcher: dispatcher,
		tiers:      tiers,
		outbox:     publisher,
		metrics:    checkoutMetrics,
		logg:       logg,
		cfg:        cfg,
		taxRate:    taxRate,
	}, nil
}

// Initiate freezes the shopper's active cart into a new checkout session. The
// snapshot, plan, and totals never change after this point.
func (s *service) Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*models.CheckoutSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var address *types.ShippingAddress
	if input.ShippingAddress != nil {
		if err := helpers.ValidateShippingAddress(*input.ShippingAddress); err != nil {
			return nil, err
		}
		frozen := *input.ShippingAddress
		address = &frozen
	}
	var paymentRef *string
	if ref := strings.TrimSpace(input.PaymentMethodRef); ref != "" {
		paymentRef = &ref
	}

	var session *models.CheckoutSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.cartRepo.WithTx(tx).FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		snapshot := helpers.BuildSnapshot(record)

		plan := make(types.RetailerPlan, 0, len(snapshot.Retailers))
		var subtotal, shipping, tax, total int
		for _, group := range snapshot.Retailers {
			totals := helpers.ComputeRetailerTotals(group, s.cfg.ShippingFlatCents, s.taxRate)
			subtotal += totals.SubtotalCents
			shipping += totals.ShippingCents
			tax += totals.TaxCents
			total += totals.TotalCents
			plan = append(plan, types.RetailerPlanEntry{
				RetailerID:      group.RetailerID,
				ItemCount:       group.ItemCount,
				SubtotalCents:   group.SubtotalCents,
				Status:          enums.OrderStatusPending,
				PlacementMethod: s.tiers.MethodFor(group.RetailerID),
			})
		}

		session, err = s.sessions.WithTx(tx).CreateSession(ctx, &models.CheckoutSession{
			Token:            newSessionToken(s.cfg.SessionTokenPrefix),
			UserID:           userID,
			CartSnapshot:     snapshot,
			Plan:             plan,
			ShippingAddress:  address,
			PaymentMethodRef: paymentRef,
			SubtotalCents:    subtotal,
			ShippingCents:    shipping,
			TaxCents:         tax,
			TotalCents:       total,
			Currency:         snapshot.Currency,
			Status:           enums.SessionStatusPending,
			ExpiresAt:        time.Now().UTC().Add(s.cfg.SessionTTL),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSession(enums.SessionStatusPending.String())
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]interface{}{
			"session_id":  session.ID.String(),
			"retailers":   len(session.Plan),
			"total_cents": session.TotalCents,
		})
		s.logg.Info(logCtx, "checkout session created")
	}
	return session, nil
}

func (s *service) GetSession(ctx context.Context, userID uuid.UUID, token string) (*models.CheckoutSession, error) {
	return s.sessions.FindByTokenAndUser(ctx, token, userID)
}

func (s *service) SessionOrders(ctx context.Context, userID uuid.UUID, token string) ([]models.RetailerOrder, error) {
	session, err := s.sessions.FindByTokenAndUser(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	return s.ordersRepo.FindBySession(ctx, session.ID)
}

// UpdateShipping amends the destination on a session that has not started
// placing. The frozen snapshot, plan, and totals are untouched.
func (s *service) UpdateShipping(ctx context.Context, userID uuid.UUID, token string, address types.ShippingAddress) (*models.CheckoutSession, error) {
	if err := helpers.ValidateShippingAddress(address); err != nil {
		return nil, err
	}
	return s.amendSession(ctx, userID, token, map[string]any{"shipping_address": &address})
}

// UpdatePayment swaps the payment method reference before placement.
func (s *service) UpdatePayment(ctx context.Context, userID uuid.UUID, token string, paymentMethodRef string) (*models.CheckoutSession, error) {
	paymentMethodRef = strings.TrimSpace(paymentMethodRef)
	if paymentMethodRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	return s.amendSession(ctx, userID, token, map[string]any{"payment_method_ref": paymentMethodRef})
}

func (s *service) amendSession(ctx context.Context, userID uuid.UUID, token string, updates map[string]any) (*models.CheckoutSession, error) {
	session, err := s.sessions.FindByTokenAndUser(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session can no longer be amended")
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session expired")
	}
	if err := s.sessions.UpdateSession(ctx, session.ID, updates); err != nil {
		return nil, err
	}
	return s.sessions.FindByToken(ctx, token)
}

// Place drives the session to a terminal state: capture payment, materialize
// one order per retailer from the frozen plan, then fan the orders out. Every
// order settles before the session completes.
func (s *service) Place(ctx context.Context, userID uuid.UUID, token string) (*PlaceResult, error) {
	session, err := s.sessions.FindByTokenAndUser(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	// Precondition failures leave the session untouched; the shopper can
	// amend and retry. The failed status is reserved for capture failures.
	if session.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session already settled")
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session expired")
	}
	if session.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required before placement")
	}
	if session.PaymentMethodRef == nil || strings.TrimSpace(*session.PaymentMethodRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required before placement")
	}
	if err := s.sessions.TransitionStatus(ctx, session.ID, enums.SessionStatusPending, enums.SessionStatusProcessing); err != nil {
		return nil, err
	}

	transaction, captureErr := s.payment.Capture(ctx, session)
	if captureErr != nil {
		s.failSession(ctx, session, captureErr.Error(), true)
		return nil, captureErr
	}

	orderRows, err := s.materializeOrders(ctx, session, transaction)
	if err != nil {
		// Payment is already captured; the transaction row is the
		// reconciliation trail for the operator.
		s.failSession(ctx, session, fmt.Sprintf("order creation failed: %v", err), false)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create retailer orders")
	}

	reports := s.dispatcher.PlaceAll(ctx, orderRows)
	s.consumeCart(ctx, session)

	now := time.Now().UTC()
	if err := s.sessions.UpdateSession(ctx, session.ID, map[string]any{
		"status":       enums.SessionStatusCompleted,
		"completed_at": now,
	}); err != nil {
		return nil, err
	}
	s.metrics.IncSession(enums.SessionStatusCompleted.String())

	settled, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	settledOrders, err := s.ordersRepo.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &PlaceResult{Session: settled, Orders: settledOrders, Reports: reports}, nil
}

func (s *service) materializeOrders(ctx context.Context, session *models.CheckoutSession, transaction *models.PaymentTransaction) ([]models.RetailerOrder, error) {
	groupsByRetailer := make(map[string]types.RetailerGroup, len(session.CartSnapshot.Retailers))
	for _, group := range session.CartSnapshot.Retailers {
		groupsByRetailer[group.RetailerID] = group
	}

	var address types.ShippingAddress
	if session.ShippingAddress != nil {
		address = *session.ShippingAddress
	}

	var created []models.RetailerOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		capturedEvent := outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			Data: payloads.PaymentCapturedEvent{
				SessionID:     session.ID,
				TransactionID: transaction.ID,
				AmountCents:   session.TotalCents,
				Currency:      session.Currency.String(),
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, capturedEvent); err != nil {
			return err
		}

		orderIDs := make([]uuid.UUID, 0, len(session.Plan))
		for _, entry := range session.Plan {
			group, ok := groupsByRetailer[entry.RetailerID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInternal, "plan references retailer missing from snapshot")
			}
			totals := helpers.ComputeRetailerTotals(group, s.cfg.ShippingFlatCents, s.taxRate)

			order, err := ordersRepo.CreateOrder(ctx, &models.RetailerOrder{
				UserID:          session.UserID,
				SessionID:       session.ID,
				RetailerID:      entry.RetailerID,
				OrderNumber:     orders.NewOrderNumber(s.cfg.OrderNumberPrefix),
				SubtotalCents:   totals.SubtotalCents,
				ShippingCents:   totals.ShippingCents,
				TaxCents:        totals.TaxCents,
				TotalCents:      totals.TotalCents,
				Currency:        session.Currency,
				ShippingAddress: address,
				Status:          enums.OrderStatusPending,
				PlacementMethod: entry.PlacementMethod,
			})
			if err != nil {
				return err
			}

			items := make([]models.OrderItem, 0, len(group.Items))
			for _, snapshotItem := range group.Items {
				items = append(items, orderItemFromSnapshot(order.ID, snapshotItem))
			}
			if err := ordersRepo.CreateOrderItems(ctx, items); err != nil {
				return err
			}
			order.Items = items
			created = append(created, *order)
			orderIDs = append(orderIDs, order.ID)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrdersCreated,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			Data: payloads.OrdersCreatedEvent{
				SessionID: session.ID,
				OrderIDs:  orderIDs,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// consumeCart retires the live cart once every order has settled. The frozen
// snapshot is the source of truth from materialization onward, so a failure
// here is logged and reconciled out of band rather than failing the place.
func (s *service) consumeCart(ctx context.Context, session *models.CheckoutSession) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		if err := cartRepo.UpdateStatus(ctx, session.CartSnapshot.CartID, session.UserID, enums.CartStatusConverted); err != nil {
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return err
			}
		}
		return cartRepo.ClearItems(ctx, session.CartSnapshot.CartID)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "session_id", session.ID.String()), "clear cart after fan-out", err)
	}
}

func (s *service) failSession(ctx context.Context, session *models.CheckoutSession, reason string, emitPaymentFailed bool) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":        enums.SessionStatusFailed,
			"error_message": reason,
		}
		if err := s.sessions.WithTx(tx).UpdateSession(ctx, session.ID, updates); err != nil {
			return err
		}
		if !emitPaymentFailed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			Data: payloads.PaymentFailedEvent{
				SessionID: session.ID,
				Reason:    reason,
			},
			Version: 1,
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "session_id", session.ID.String()), "mark session failed", err)
	}
	s.metrics.IncSession(enums.SessionStatusFailed.String())
}

func newSessionToken(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		prefix = "cs"
	}
	return prefix + "_" + raw
}

func orderItemFromSnapshot(orderID uuid.UUID, item types.SnapshotItem) models.OrderItem {
	orderItem := models.OrderItem{
		OrderID:        orderID,
		ProductName:    item.ProductName,
		SKU:            item.SKU,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		TotalCents:     item.TotalCents(),
	}
	if item.ProductURL != "" {
		productURL := item.ProductURL
		orderItem.ProductURL = &productURL
	}
	if item.ImageURL != "" {
		imageURL := item.ImageURL
		orderItem.ImageURL = &imageURL
	}
	if item.Size != "" {
		size := item.Size
		orderItem.Size = &size
	}
	if item.Color != "" {
		color := item.Color
		orderItem.Color = &color
	}
	return orderItem
}
