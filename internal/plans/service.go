package plans

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
)

// Service exposes plan management scoped through category ownership plus the
// customer-facing browse surface.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreatePlanRequest) (*PlanDTO, error)
	Update(ctx context.Context, ownerID, planID uuid.UUID, req UpdatePlanRequest) (*PlanDTO, error)
	Delete(ctx context.Context, ownerID, planID uuid.UUID) error
	Get(ctx context.Context, ownerID, planID uuid.UUID) (*PlanDTO, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID, query ListPlansQuery) ([]PlanDTO, error)
	BrowseActive(ctx context.Context, categoryID *uuid.UUID) ([]PlanDTO, error)
}

type categoryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo       Repository
	categories categoryReader
	now        func() time.Time
}

// ServiceParams bundles the dependencies for the plans service.
type ServiceParams struct {
	Repo       Repository
	Categories categoryReader
	Now        func() time.Time
}

// NewService validates params and builds a plans service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("plans repository is required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("categories reader is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, categories: params.Categories, now: now}, nil
}

var percentCeiling = decimal.NewFromInt(100)

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, req CreatePlanRequest) (*PlanDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}

	duration, err := enums.ParsePlanDuration(req.Duration)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid duration")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if err := validateDiscount(req.DiscountPercent, req.DiscountActivatedDate, req.DiscountDeactivatedDate); err != nil {
		return nil, err
	}

	if _, err := s.ownedCategory(ctx, ownerID, req.CategoryID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check plan name")
	}

	plan := &models.Plan{
		CategoryID:              req.CategoryID,
		Name:                    name,
		Details:                 strings.TrimSpace(req.Details),
		Features:                req.Features,
		Duration:                duration,
		Status:                  enums.PlanStatusActive,
		Price:                   req.Price,
		DiscountPercent:         req.DiscountPercent,
		DiscountActivatedDate:   req.DiscountActivatedDate,
		DiscountDeactivatedDate: req.DiscountDeactivatedDate,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan")
	}
	return fromModel(plan, s.now()), nil
}

func (s *service) Update(ctx context.Context, ownerID, planID uuid.UUID, req UpdatePlanRequest) (*PlanDTO, error) {
	plan, err := s.ownedPlan(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name cannot be empty")
		}
		if name != plan.Name {
			if existing, err := s.repo.FindByName(ctx, name); err == nil && existing.ID != plan.ID {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already in use")
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check plan name")
			}
		}
		plan.Name = name
	}
	if req.Details != nil {
		plan.Details = strings.TrimSpace(*req.Details)
	}
	if req.Features != nil {
		plan.Features = *req.Features
	}
	if req.Duration != nil {
		duration, err := enums.ParsePlanDuration(*req.Duration)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid duration")
		}
		plan.Duration = duration
	}
	if req.Status != nil {
		status, err := enums.ParsePlanStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		plan.Status = status
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		plan.Price = *req.Price
	}
	if req.ClearDiscount {
		plan.DiscountPercent = nil
		plan.DiscountActivatedDate = nil
		plan.DiscountDeactivatedDate = nil
	} else {
		if req.DiscountPercent != nil {
			plan.DiscountPercent = req.DiscountPercent
		}
		if req.DiscountActivatedDate != nil {
			plan.DiscountActivatedDate = req.DiscountActivatedDate
		}
		if req.DiscountDeactivatedDate != nil {
			plan.DiscountDeactivatedDate = req.DiscountDeactivatedDate
		}
	}
	if err := validateDiscount(plan.DiscountPercent, plan.DiscountActivatedDate, plan.DiscountDeactivatedDate); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}
	return fromModel(plan, s.now()), nil
}

func (s *service) Delete(ctx context.Context, ownerID, planID uuid.UUID) error {
	plan, err := s.ownedPlan(ctx, ownerID, planID)
	if err != nil {
		return err
	}

	count, err := s.repo.CountSubscriptions(ctx, plan.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count plan subscriptions")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "plan still has subscriptions")
	}

	if err := s.repo.Delete(ctx, plan.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete plan")
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, planID uuid.UUID) (*PlanDTO, error) {
	plan, err := s.ownedPlan(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}
	return fromModel(plan, s.now()), nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID, query ListPlansQuery) ([]PlanDTO, error) {
	ownedIDs, err := s.categories.OwnedIDs(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve owned categories")
	}
	if len(ownedIDs) == 0 {
		return []PlanDTO{}, nil
	}

	categoryIDs := ownedIDs
	if query.CategoryID != nil {
		if !containsID(ownedIDs, *query.CategoryID) {
			return []PlanDTO{}, nil
		}
		categoryIDs = []uuid.UUID{*query.CategoryID}
	}

	list, err := s.repo.List(ctx, ListParams{
		Search:      query.Search,
		CategoryIDs: categoryIDs,
		OrderBy:     query.SortBy,
		Desc:        query.SortDesc,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list plans")
	}

	dtos := fromModels(list, s.now())
	if query.SortBy == "final_price" {
		sortByFinalPrice(dtos, query.SortDesc)
	}
	return dtos, nil
}

func (s *service) BrowseActive(ctx context.Context, categoryID *uuid.UUID) ([]PlanDTO, error) {
	params := ListParams{ActiveOnly: true, OrderBy: "name"}
	if categoryID != nil {
		params.CategoryIDs = []uuid.UUID{*categoryID}
	}
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "browse plans")
	}
	return fromModels(list, s.now()), nil
}

func (s *service) ownedPlan(ctx context.Context, ownerID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	if _, err := s.ownedCategory(ctx, ownerID, plan.CategoryID); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *service) ownedCategory(ctx context.Context, ownerID, categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	if category.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return category, nil
}

func validateDiscount(percent *decimal.Decimal, activated, deactivated *time.Time) error {
	if percent != nil {
		if percent.IsNegative() || percent.GreaterThan(percentCeiling) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
		}
	}
	if activated != nil && deactivated != nil && activated.After(*deactivated) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount activation must not follow deactivation")
	}
	if (activated == nil) != (deactivated == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount window requires both activation and deactivation dates")
	}
	return nil
}

func sortByFinalPrice(dtos []PlanDTO, desc bool) {
	sort.SliceStable(dtos, func(i, j int) bool {
		if desc {
			return dtos[i].FinalPrice.GreaterThan(dtos[j].FinalPrice)
		}
		return dtos[i].FinalPrice.LessThan(dtos[j].FinalPrice)
	})
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
