package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
)

// Repository exposes persistence helpers for alerts.
type Repository interface {
	Create(ctx context.Context, alert *models.Alert) error
	ExistsFor(ctx context.Context, email, subject string, since time.Time) (bool, error)
	List(ctx context.Context, unreadOnly bool) ([]models.Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// ExistsFor reports whether the same alert was already generated for this
// address since the cutoff, so a re-run of the sweep does not double up.
func (r *repositoryImpl) ExistsFor(ctx context.Context, email, subject string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("email = ? AND subject = ? AND date_sent >= ?", email, subject, since).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) List(ctx context.Context, unreadOnly bool) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{})
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var list []models.Alert
	if err := query.Order("date_sent DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND read = ?", id, false).
		Update("read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
