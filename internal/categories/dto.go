package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
)

// CategoryDTO is the transport shape for a category.
type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CategoryType string    `json:"category_type"`
	Description  string    `json:"description,omitempty"`
	OwnerID      uuid.UUID `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	CategoryType string `json:"category_type" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=500"`
}

// UpdateCategoryRequest carries the mutable category fields.
type UpdateCategoryRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=100"`
	CategoryType *string `json:"category_type,omitempty" validate:"omitempty,max=100"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

func fromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:           c.ID,
		Name:         c.Name,
		CategoryType: c.CategoryType,
		Description:  c.Description,
		OwnerID:      c.OwnerID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromModels(list []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i]))
	}
	return out
}
