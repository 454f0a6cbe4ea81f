package auth

import (
	"github.com/subhub-labs/subhub-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint. Either
// username or email identifies the account.
type LoginRequest struct {
	Username string `json:"username" validate:"omitempty"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
