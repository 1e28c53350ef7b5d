package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Package is an investment package offered for purchase.
type Package struct {
	ID               string          `json:"_id,omitempty"`
	Name             string          `json:"name"`
	PriceUSD         decimal.Decimal `json:"priceUSD"`
	Description      string          `json:"description"`
	IsActive         bool            `json:"isActive"`
	PackageIndex     int             `json:"packageIndex"`
	MaxROIMultiplier decimal.Decimal `json:"maxROIMultiplier"`
	Features         []string        `json:"features"`
	XeenuxAmount     decimal.Decimal `json:"xeenuxAmount"`
}

// PackageList is the data block of GET /packages.
type PackageList struct {
	Packages    []Package       `json:"packages"`
	XeenuxPrice decimal.Decimal `json:"xeenuxPrice"`
}

// PackageDetails is the data block of GET /packages/:id.
type PackageDetails struct {
	Package Package `json:"package"`
}

// UserPackage is a package a user has bought.
type UserPackage struct {
	ID           string          `json:"_id,omitempty"`
	UserID       int64           `json:"userId"`
	PackageIndex int             `json:"packageIndex"`
	PurchaseDate *time.Time      `json:"purchaseDate,omitempty"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	XeenuxAmount decimal.Decimal `json:"xeenuxAmount"`
	CeilingLimit decimal.Decimal `json:"ceilingLimit"`
	Earned       decimal.Decimal `json:"earned"`
	IsActive     bool            `json:"isActive"`
}

// UserPackages is the data block of GET /users/packages.
type UserPackages struct {
	Packages []UserPackage `json:"packages"`
}

// PurchaseRequest is the POST /packages/purchase body.
type PurchaseRequest struct {
	PackageIndex int      `json:"packageIndex" validate:"gte=0"`
	Position     Position `json:"position" validate:"oneof=0 1"`
}

// PurchaseResult is the data block of POST /packages/purchase.
type PurchaseResult struct {
	UserPackage UserPackage `json:"userPackage"`
	Activity    Activity    `json:"activity"`
}

// PackageInput is the admin create/update body. Pointer fields are optional
// on update.
type PackageInput struct {
	Name             *string          `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	PriceUSD         *decimal.Decimal `json:"priceUSD,omitempty" validate:"omitempty,dgt0"`
	Description      *string          `json:"description,omitempty"`
	PackageIndex     *int             `json:"packageIndex,omitempty" validate:"omitempty,gte=0"`
	MaxROIMultiplier *decimal.Decimal `json:"maxROIMultiplier,omitempty" validate:"omitempty,dgt0"`
	Features         []string         `json:"features,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
}
