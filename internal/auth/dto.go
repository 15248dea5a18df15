package auth

import (
	"github.com/angelmondragon/parcelhub-backend/internal/users"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service signup payload. Role defaults to customer.
type RegisterRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required"`
	FullName    string             `json:"full_name" validate:"required"`
	Phone       *string            `json:"phone,omitempty"`
	Role        enums.Role         `json:"role,omitempty"`
	VehicleType *enums.VehicleType `json:"vehicle_type,omitempty"`
}

// RefreshRequest carries the refresh token presented alongside an expired access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned by a refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
