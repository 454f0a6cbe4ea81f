package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/subhub-labs/subhub-backend/pkg/db/models"
	"github.com/subhub-labs/subhub-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	MobileNumber *string        `json:"mobile_number,omitempty"`
	State        string         `json:"state,omitempty"`
	District     string         `json:"district,omitempty"`
	City         string         `json:"city,omitempty"`
	PinCode      string         `json:"pin_code,omitempty"`
	IsActive     bool           `json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	Role         enums.UserRole
	MobileNumber *string
	State        string
	District     string
	City         string
	PinCode      string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		MobileNumber: u.MobileNumber,
		State:        u.State,
		District:     u.District,
		City:         u.City,
		PinCode:      u.PinCode,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}

	return &models.User{
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         role,
		MobileNumber: c.MobileNumber,
		State:        c.State,
		District:     c.District,
		City:         c.City,
		PinCode:      c.PinCode,
		IsActive:     isActive,
	}
}
