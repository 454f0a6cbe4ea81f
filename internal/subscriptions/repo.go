package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Repository exposes persistence helpers for subscriptions. Read methods
// return rows with the Plan association loaded; activation depends on it to
// pick the window length.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Subscription, error)
	ListActiveEndingOn(ctx context.Context, date time.Time) ([]models.Subscription, error)
	ActivatePending(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	MarkInactive(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Customer").
		First(&subscription, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repositoryImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Subscription, error) {
	var list []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repositoryImpl) ListActiveEndingOn(ctx context.Context, date time.Time) ([]models.Subscription, error) {
	var list []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Customer").
		Where("status = ? AND end_date = ?", enums.SubscriptionStatusActive, date.Format("2006-01-02")).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ActivatePending flips a pending subscription to active in a single guarded
// UPDATE. The status precondition makes concurrent payment callbacks race
// safely: only one caller observes updated=true.
func (r *repositoryImpl) ActivatePending(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusPending).
		Updates(map[string]any{
			"status":     enums.SubscriptionStatusActive,
			"is_active":  true,
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkInactive(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusActive).
		Updates(map[string]any{
			"status":    enums.SubscriptionStatusInactive,
			"is_active": false,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ?", id).Error
}
