// Package model defines the payloads exchanged with the Xeenux backend.
//
// Every backend response is wrapped in an Envelope; the structs here describe
// the "data" part. Money and volume figures use decimal.Decimal so that a
// 0.1 + 0.2 style rounding error never shows up on a balance.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the leg a user is placed on under their referrer.
type Position int

const (
	PositionLeft  Position = 0
	PositionRight Position = 1
)

func (p Position) String() string {
	if p == PositionRight {
		return "right"
	}
	return "left"
}

// User is the account record returned by /users/me, login and the admin
// endpoints. UserID is the numeric placement id used throughout the binary
// tree; ID is the backend's document id.
type User struct {
	ID             string          `json:"_id,omitempty"`
	UserID         int64           `json:"userId"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone,omitempty"`
	WalletAddress  string          `json:"walletAddress,omitempty"`
	Role           string          `json:"role,omitempty"`
	IsActive       bool            `json:"isActive"`
	ReferrerID     int64           `json:"referrerId,omitempty"`
	Position       Position        `json:"position"`
	RegisteredAt   *time.Time      `json:"registeredAt,omitempty"`
	RefCount       int             `json:"refCount"`
	Rank           int             `json:"rank"`
	ROIIncome      decimal.Decimal `json:"roiIncome"`
	LevelIncome    decimal.Decimal `json:"levelIncome"`
	Autopool       decimal.Decimal `json:"autopoolIncome"`
	RewardIncome   decimal.Decimal `json:"rewardIncome"`
	BinaryIncome   decimal.Decimal `json:"binaryIncome"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	TotalWithdraw  decimal.Decimal `json:"totalWithdraw"`
	PurchaseWallet decimal.Decimal `json:"purchaseWallet"`
}

// IsAdmin reports whether the backend flagged the account as an administrator.
func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// Volume is the business volume snapshot attached to a user.
type Volume struct {
	UserID       int64           `json:"userId"`
	SelfVolume   decimal.Decimal `json:"selfVolume"`
	DirectVolume decimal.Decimal `json:"directVolume"`
	LeftVolume   decimal.Decimal `json:"leftVolume"`
	RightVolume  decimal.Decimal `json:"rightVolume"`
	TotalVolume  decimal.Decimal `json:"totalVolume"`
}

// Incomes groups earned (or pending) income by source.
type Incomes struct {
	ROI      decimal.Decimal `json:"roi"`
	Level    decimal.Decimal `json:"level"`
	Binary   decimal.Decimal `json:"binary"`
	Autopool decimal.Decimal `json:"autopool"`
	Reward   decimal.Decimal `json:"reward"`
	Total    decimal.Decimal `json:"total"`
}

// Profile is the /users/me payload.
type Profile struct {
	User           User          `json:"user"`
	Volume         Volume        `json:"volume"`
	Incomes        Incomes       `json:"incomes"`
	PendingIncome  Incomes       `json:"pendingIncome"`
	ActivePackages []UserPackage `json:"activePackages"`
}

// ProfileUpdate is the PATCH /users/me body. Nil fields are left untouched.
type ProfileUpdate struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=30"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,min=1,max=15"`
	WalletAddress *string `json:"walletAddress,omitempty" validate:"omitempty,min=1"`
}

// TeamStructure summarises a user's downline.
type TeamStructure struct {
	UserID         int64                      `json:"userId"`
	DirectTeam     int                        `json:"directTeam"`
	TotalTeam      int                        `json:"totalTeam"`
	DirectBusiness decimal.Decimal            `json:"directBusiness"`
	TotalBusiness  decimal.Decimal            `json:"totalBusiness"`
	Team           map[string][]int64         `json:"team,omitempty"`
	Volume         map[string]decimal.Decimal `json:"volume,omitempty"`
	TeamRanks      map[string]int             `json:"teamRanks,omitempty"`
}

// ReferralLinks are the registration links for each leg.
type ReferralLinks struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Dashboard is the /users/dashboard payload.
type Dashboard struct {
	User             User          `json:"user"`
	Volume           Volume        `json:"volume"`
	BinaryNetwork    BinaryNetwork `json:"binaryNetwork"`
	TeamStructure    TeamStructure `json:"teamStructure"`
	ActivePackages   []UserPackage `json:"activePackages"`
	Incomes          Incomes       `json:"incomes"`
	RecentActivities []Activity    `json:"recentActivities"`
	ReferralLinks    ReferralLinks `json:"referralLinks"`
	BinaryTree       BinarySummary `json:"binaryTree"`
}

// TeamPage is the /users/team/:level payload.
type TeamPage struct {
	Members    []TeamStructure `json:"members"`
	Pagination Pagination      `json:"pagination"`
}

// ActivityType mirrors the backend's numeric activity kinds.
type ActivityType int

const (
	ActivityPurchase ActivityType = iota
	ActivityROI
	ActivityLevel
	ActivityBinary
	ActivityAutopool
	ActivityReward
	ActivityWithdrawal
)

// Activity is one entry of a user's activity feed.
type Activity struct {
	ID          string          `json:"_id,omitempty"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        ActivityType    `json:"type"`
	Level       int             `json:"level,omitempty"`
	Description string          `json:"description,omitempty"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Meta        map[string]any  `json:"meta,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
}

// ActivityPage is a paginated activity list.
type ActivityPage struct {
	Activities []Activity `json:"activities"`
	Pagination Pagination `json:"pagination"`
}

// Pagination is the paging block every list endpoint returns.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether another page exists after this one.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}
