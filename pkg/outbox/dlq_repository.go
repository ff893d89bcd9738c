package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
)

// Dead-letter error messages are capped so a huge upstream error cannot
// bloat the table.
const maxDLQErrorLen = 1024

// DLQRepository persists outbox events the publisher gave up on, either
// after exhausting retries or on a payload it can never publish.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx writes a dead-letter row in the same transaction that marks the
// source event terminal.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if msg := entry.ErrorMessage; msg != nil && len(*msg) > maxDLQErrorLen {
		capped := (*msg)[:maxDLQErrorLen]
		entry.ErrorMessage = &capped
	}
	return tx.Create(&entry).Error
}
