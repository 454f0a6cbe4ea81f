package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
)

// Service exposes owner-scoped category management.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreateCategoryRequest) (*CategoryDTO, error)
	Update(ctx context.Context, ownerID, categoryID uuid.UUID, req UpdateCategoryRequest) (*CategoryDTO, error)
	Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error
	Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*CategoryDTO, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]CategoryDTO, error)
	ListAll(ctx context.Context) ([]CategoryDTO, error)
}

type service struct {
	repo Repository
}

// ServiceParams bundles the dependencies for the categories service.
type ServiceParams struct {
	Repo Repository
}

// NewService validates params and builds a categories service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("categories repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, req CreateCategoryRequest) (*CategoryDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category := &models.Category{
		Name:         name,
		CategoryType: strings.TrimSpace(req.CategoryType),
		Description:  strings.TrimSpace(req.Description),
		OwnerID:      ownerID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return fromModel(category), nil
}

func (s *service) Update(ctx context.Context, ownerID, categoryID uuid.UUID, req UpdateCategoryRequest) (*CategoryDTO, error) {
	category, err := s.owned(ctx, ownerID, categoryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name cannot be empty")
		}
		category.Name = name
	}
	if req.CategoryType != nil {
		category.CategoryType = strings.TrimSpace(*req.CategoryType)
	}
	if req.Description != nil {
		category.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return fromModel(category), nil
}

func (s *service) Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	category, err := s.owned(ctx, ownerID, categoryID)
	if err != nil {
		return err
	}

	count, err := s.repo.CountPlans(ctx, category.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category plans")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category still has plans")
	}

	if err := s.repo.Delete(ctx, category.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*CategoryDTO, error) {
	category, err := s.owned(ctx, ownerID, categoryID)
	if err != nil {
		return nil, err
	}
	return fromModel(category), nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]CategoryDTO, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return fromModels(list), nil
}

func (s *service) ListAll(ctx context.Context) ([]CategoryDTO, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return fromModels(list), nil
}

// owned loads a category and enforces that the actor owns it. Missing and
// foreign rows both surface as not found so ownership is not probeable.
func (s *service) owned(ctx context.Context, ownerID, categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, categoryID)
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
