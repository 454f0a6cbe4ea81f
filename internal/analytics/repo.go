package analytics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// Repository reads flattened aggregation facts. A nil categoryIDs slice means
// unscoped; a non-nil slice restricts every query to plans in those
// categories.
type Repository interface {
	ListPaymentFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]PaymentFact, error)
	ListSubscriptionFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]SubscriptionFact, error)
	CountCustomers(ctx context.Context, categoryIDs []uuid.UUID) (int64, error)
	CountPlans(ctx context.Context, categoryIDs []uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an analytics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) ListPaymentFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]PaymentFact, error) {
	query := r.db.WithContext(ctx).
		Table("payments").
		Select(`payments.id AS payment_id,
			payments.amount,
			payments.method,
			payments.created_at,
			COALESCE(payments.transaction_id, '') AS transaction_id,
			subscriptions.customer_id,
			plans.name AS plan_name`).
		Joins("JOIN subscriptions ON subscriptions.id = payments.subscription_id").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Where("payments.status = ?", enums.PaymentStatusCompleted).
		Order("payments.created_at DESC")
	if categoryIDs != nil {
		query = query.Where("plans.category_id IN ?", categoryIDs)
	}

	var facts []PaymentFact
	if err := query.Scan(&facts).Error; err != nil {
		return nil, err
	}
	return facts, nil
}

func (r *repositoryImpl) ListSubscriptionFacts(ctx context.Context, categoryIDs []uuid.UUID) ([]SubscriptionFact, error) {
	query := r.db.WithContext(ctx).
		Table("subscriptions").
		Select(`subscriptions.id,
			subscriptions.customer_id,
			subscriptions.status,
			subscriptions.address,
			subscriptions.created_at,
			subscriptions.end_date,
			plans.name AS plan_name,
			plans.price AS plan_price,
			plans.duration AS plan_duration`).
		Joins("JOIN plans ON plans.id = subscriptions.plan_id")
	if categoryIDs != nil {
		query = query.Where("plans.category_id IN ?", categoryIDs)
	}

	var facts []SubscriptionFact
	if err := query.Scan(&facts).Error; err != nil {
		return nil, err
	}
	return facts, nil
}

// CountCustomers is the whole active customer base when unscoped. Under an
// owner scope it counts distinct customers subscribed within the owned
// categories, so the figure stays isolated like the rest of the snapshot.
func (r *repositoryImpl) CountCustomers(ctx context.Context, categoryIDs []uuid.UUID) (int64, error) {
	var count int64
	if categoryIDs == nil {
		err := r.db.WithContext(ctx).
			Model(&models.User{}).
			Where("role = ? AND is_active = ?", enums.UserRoleCustomer, true).
			Count(&count).Error
		return count, err
	}
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id").
		Where("plans.category_id IN ?", categoryIDs).
		Distinct("subscriptions.customer_id").
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountPlans(ctx context.Context, categoryIDs []uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Plan{})
	if categoryIDs != nil {
		query = query.Where("category_id IN ?", categoryIDs)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
