package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeType filters the income ledger.
type IncomeType string

const (
	IncomeAll      IncomeType = "all"
	IncomeROI      IncomeType = "roi"
	IncomeLevel    IncomeType = "level"
	IncomeBinary   IncomeType = "binary"
	IncomeAutopool IncomeType = "autopool"
	IncomeReward   IncomeType = "reward"
)

// Income is one ledger line.
type Income struct {
	ID            string          `json:"_id,omitempty"`
	UserID        int64           `json:"userId"`
	Type          IncomeType      `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	IsPaid        bool            `json:"isPaid"`
	IsDistributed bool            `json:"isDistributed"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
}

// IncomePage is the data block of GET /income.
type IncomePage struct {
	Incomes    []Income   `json:"incomes"`
	Summary    Incomes    `json:"summary"`
	Pagination Pagination `json:"pagination"`
}

// ROIResult is the data block of POST /income/process-roi.
type ROIResult struct {
	Status           string          `json:"status"`
	ROIAmount        decimal.Decimal `json:"roiAmount"`
	TotalROI         decimal.Decimal `json:"totalROI"`
	RemainingROI     decimal.Decimal `json:"remainingROI"`
	UpdatedPackages  int             `json:"updatedPackages"`
	LastDistribution *time.Time      `json:"lastDistribution,omitempty"`
}

// BinaryResult is the data block of POST /income/process-binary.
type BinaryResult struct {
	Status      string          `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	LeftVolume  decimal.Decimal `json:"leftVolume"`
	RightVolume decimal.Decimal `json:"rightVolume"`
}

// IncomeWithdrawal is the data block of POST /income/withdraw.
type IncomeWithdrawal struct {
	Transaction Transaction                `json:"transaction"`
	Fee         decimal.Decimal            `json:"fee"`
	FinalAmount decimal.Decimal            `json:"finalAmount"`
	Deductions  map[string]decimal.Decimal `json:"deductions,omitempty"`
}

// AutopoolIncomePage is the data block of GET /autopool/income.
type AutopoolIncomePage struct {
	Incomes    []Income   `json:"incomes"`
	Pagination Pagination `json:"pagination"`
}
