package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Repository exposes persistence helpers for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	CompletePending(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature, transactionID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.Payment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repositoryImpl) FindByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		First(&payment, "gateway_order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// CompletePending settles a pending payment in a single guarded UPDATE so a
// duplicate gateway callback cannot settle the same row twice.
func (r *repositoryImpl) CompletePending(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature, transactionID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":             enums.PaymentStatusCompleted,
			"gateway_payment_id": gatewayPaymentID,
			"gateway_signature":  signature,
			"transaction_id":     transactionID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Update("status", enums.PaymentStatusFailed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repositoryImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.id = payments.subscription_id").
		Where("subscriptions.customer_id = ?", customerID).
		Order("payments.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
