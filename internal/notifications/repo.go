package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	"github.com/subhub-labs/subhub-backend/pkg/pagination"
)

// ListParams filters and orders a notification listing. SortBy must be one of
// the whitelisted keys; Cursor is honored only for the default date ordering.
type ListParams struct {
	RecipientUserID *uuid.UUID
	Search          string
	SortBy          string
	Desc            bool
	Limit           int
	Cursor          *pagination.Cursor
}

type markResult struct {
	Found   bool
	Updated bool
}

var orderColumns = map[string]string{
	"type":      "type",
	"title":     "title",
	"recipient": "recipient",
	"created":   "created_at",
}

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	InsertUnlessDuplicate(ctx context.Context, notification *models.Notification) (bool, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, delivered bool, at time.Time) error
	List(ctx context.Context, params ListParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// InsertUnlessDuplicate creates the row unless an identical pending or sent
// one already exists for the same recipient user. The existence check and the
// insert run as a single statement so concurrent broadcast retries cannot
// both insert.
func (r *repositoryImpl) InsertUnlessDuplicate(ctx context.Context, notification *models.Notification) (bool, error) {
	var id uuid.UUID
	result := r.db.WithContext(ctx).Raw(`
		INSERT INTO notifications (title, recipient, recipient_user_id, type, details, status)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications
			WHERE recipient_user_id = ? AND title = ? AND details = ? AND status IN (?, ?)
		)
		RETURNING id`,
		notification.Title, notification.Recipient, notification.RecipientUserID,
		notification.Type, notification.Details, enums.NotificationStatusPending,
		notification.RecipientUserID, notification.Title, notification.Details,
		enums.NotificationStatusPending, enums.NotificationStatusSent,
	).Scan(&id)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	notification.ID = id
	notification.Status = enums.NotificationStatusPending
	return true, nil
}

// RecordAttempt bumps the delivery bookkeeping after one provider call.
func (r *repositoryImpl) RecordAttempt(ctx context.Context, id uuid.UUID, delivered bool, at time.Time) error {
	updates := map[string]any{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_attempt_at": at,
	}
	if delivered {
		updates["status"] = enums.NotificationStatusSent
		updates["sent_at"] = at
	} else {
		updates["status"] = enums.NotificationStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.Notification, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if params.RecipientUserID != nil {
		query = query.Where("recipient_user_id = ?", *params.RecipientUserID)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}

	column, ok := orderColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if params.Desc || params.SortBy == "" {
		direction = "DESC"
	}

	if column == "created_at" {
		return r.listByDate(query, params, direction)
	}

	var rows []models.Notification
	limit := pagination.NormalizeLimit(params.Limit)
	if err := query.Order(column + " " + direction + ", id " + direction).Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	return rows, nil, nil
}

func (r *repositoryImpl) listByDate(query *gorm.DB, params ListParams, direction string) ([]models.Notification, *pagination.Cursor, error) {
	if params.Cursor != nil {
		if direction == "DESC" {
			query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
		} else {
			query = query.Where("(created_at, id) > (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
		}
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	var rows []models.Notification
	if err := query.Order("created_at " + direction + ", id " + direction).Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return markResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return markResult{Found: true, Updated: true}, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	return markResult{Found: count > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteOlderThan prunes read notifications past the retention window.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND is_read = ?", cutoff, true).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
