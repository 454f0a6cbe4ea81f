package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
)

// Repository exposes persistence helpers for plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindByName(ctx context.Context, name string) (*models.Plan, error)
	List(ctx context.Context, params ListParams) ([]models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error)
}

// ListParams narrows and orders the plan listing.
type ListParams struct {
	Search      string
	CategoryIDs []uuid.UUID
	ActiveOnly  bool
	OrderBy     string
	Desc        bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a plans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repositoryImpl) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// orderColumns whitelists sortable columns; final_price sorts on the nominal
// price since the discounted value is derived in memory.
var orderColumns = map[string]string{
	"name":        "name",
	"price":       "price",
	"final_price": "price",
	"created":     "created_at",
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.Plan, error) {
	query := r.db.WithContext(ctx).Model(&models.Plan{})
	if search := strings.TrimSpace(params.Search); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if len(params.CategoryIDs) > 0 {
		query = query.Where("category_id IN ?", params.CategoryIDs)
	}
	if params.ActiveOnly {
		query = query.Where("status = ?", "active")
	}

	column, ok := orderColumns[params.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if params.Desc {
		direction = "DESC"
	}

	var list []models.Plan
	if err := query.Order(column + " " + direction).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repositoryImpl) Update(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Plan{}, "id = ?", id).Error
}

func (r *repositoryImpl) CountSubscriptions(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("plan_id = ?", planID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
