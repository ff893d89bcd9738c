package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
)

// Repository defines persistence operations for checkout sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSession(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error)
	FindByToken(ctx context.Context, token string) (*models.CheckoutSession, error)
	FindByTokenAndUser(ctx context.Context, token string, userID uuid.UUID) (*models.CheckoutSession, error)
	TransitionStatus(ctx context.Context, sessionID uuid.UUID, from, to enums.SessionStatus) error
	UpdateSession(ctx context.Context, sessionID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSession(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindByTokenAndUser(ctx context.Context, token string, userID uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("token = ? AND user_id = ?", token, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, err
	}
	return &session, nil
}

// TransitionStatus moves the session between lifecycle states with a guard on
// the current state. A zero-row update means another caller got there first.
func (r *repository) TransitionStatus(ctx context.Context, sessionID uuid.UUID, from, to enums.SessionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status = ?", sessionID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is not in a placeable state")
	}
	return nil
}

func (r *repository) UpdateSession(ctx context.Context, sessionID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", sessionID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return nil
}
