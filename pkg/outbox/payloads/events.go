// Package payloads defines the typed event bodies written through the outbox.
// Each struct is the Data half of an outbox.PayloadEnvelope.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
)

// PaymentCapturedEvent is emitted once the gateway confirms a capture.
type PaymentCapturedEvent struct {
	SessionID     uuid.UUID `json:"session_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AmountCents   int       `json:"amount_cents"`
	Currency      string    `json:"currency"`
}

// PaymentFailedEvent is emitted when a capture attempt is declined or errors.
type PaymentFailedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Reason    string    `json:"reason"`
}

// OrdersCreatedEvent signals a session split into per-retailer orders.
type OrdersCreatedEvent struct {
	SessionID uuid.UUID   `json:"session_id"`
	OrderIDs  []uuid.UUID `json:"order_ids"`
}

// OrderPlacedEvent is emitted when an order lands with the retailer,
// whether by an automated tier or an operator.
type OrderPlacedEvent struct {
	OrderID             uuid.UUID             `json:"order_id"`
	SessionID           uuid.UUID             `json:"session_id"`
	RetailerID          string                `json:"retailer_id"`
	PlacementMethod     enums.PlacementMethod `json:"placement_method"`
	RetailerOrderNumber string                `json:"retailer_order_number,omitempty"`
	PlacedAt            time.Time             `json:"placed_at"`
}

// OrderPlacementFailedEvent is emitted when an automated placement attempt
// errors, whether the order then fails outright or joins the manual queue.
type OrderPlacementFailedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	SessionID  uuid.UUID `json:"session_id"`
	RetailerID string    `json:"retailer_id"`
	Reason     string    `json:"reason"`
}

// OrderManualQueuedEvent tells operator tooling a task is waiting.
type OrderManualQueuedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	RetailerID string    `json:"retailer_id"`
	TotalCents int       `json:"total_cents"`
}

// OrderManualClosedEvent reports an operator resolution, either direction.
type OrderManualClosedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	RetailerID string            `json:"retailer_id"`
	Outcome    enums.OrderStatus `json:"outcome"`
	Reason     string            `json:"reason,omitempty"`
}
