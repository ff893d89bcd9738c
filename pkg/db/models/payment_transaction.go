package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/pkg/enums"
)

// PaymentTransaction records every gateway capture attempt for a session,
// successful or not. The rows form the reconciliation trail independent of
// whether any order is ever created.
type PaymentTransaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID       uuid.UUID               `gorm:"column:session_id;type:uuid;not null;index"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	GatewayIntentID *string                 `gorm:"column:gateway_intent_id"`
	GatewayChargeID *string                 `gorm:"column:gateway_charge_id"`
	AmountCents     int                     `gorm:"column:amount_cents;not null"`
	Currency        enums.Currency          `gorm:"column:currency;type:text;not null;default:'USD'"`
	Type            enums.TransactionType   `gorm:"column:type;type:transaction_type;not null;default:'charge'"`
	Status          enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null"`
	FailureReason   *string                 `gorm:"column:failure_reason"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
