package model

import "github.com/shopspring/decimal"

func init() {
	// The backend expects amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=30"`
	Email         string   `json:"email" validate:"required,email,max=50"`
	Phone         string   `json:"phone" validate:"required,min=1,max=15"`
	Password      string   `json:"password" validate:"required,min=6"`
	WalletAddress string   `json:"walletAddress" validate:"required"`
	ReferrerID    int64    `json:"referrerId" validate:"gte=0"`
	Position      Position `json:"position" validate:"oneof=0 1"`
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordUpdate is the PATCH /auth/update-password body.
type PasswordUpdate struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
}

// AuthUser is the data block of login and register.
type AuthUser struct {
	User User `json:"user"`
}
