package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AdminDashboard is the data block of GET /admin/dashboard.
type AdminDashboard struct {
	Users struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		NewToday int `json:"newToday"`
		Inactive int `json:"inactive"`
	} `json:"users"`
	Transactions struct {
		Deposits    decimal.Decimal `json:"deposits"`
		Withdrawals decimal.Decimal `json:"withdrawals"`
		Purchases   decimal.Decimal `json:"purchases"`
	} `json:"transactions"`
	Income   Incomes         `json:"income"`
	Balance  decimal.Decimal `json:"balance"`
	Packages []struct {
		PackageIndex int `json:"_id"`
		Count        int `json:"count"`
	} `json:"packages"`
	Ranks []struct {
		Rank  int    `json:"rank"`
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"ranks"`
}

// Setting is one system setting. Value is kept raw because its type depends
// on the key.
type Setting struct {
	ID          string          `json:"_id,omitempty"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Group       string          `json:"group"`
	IsActive    bool            `json:"isActive"`
	Description string          `json:"description"`
	UpdatedBy   *string         `json:"updatedBy,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Settings is the data block of GET /admin/settings.
type Settings struct {
	Settings []Setting `json:"settings"`
}

// SettingUpdate is the PATCH /admin/settings body.
type SettingUpdate struct {
	Key         string          `json:"key" validate:"required"`
	Value       json.RawMessage `json:"value" validate:"required"`
	Group       string          `json:"group" validate:"required"`
	Description string          `json:"description"`
}

// SettingResult wraps an updated setting.
type SettingResult struct {
	Setting Setting `json:"setting"`
}

// InitializeResult is the data block of POST /admin/settings/initialize.
type InitializeResult struct {
	Result struct {
		InsertedCount int `json:"insertedCount"`
		MatchedCount  int `json:"matchedCount"`
		ModifiedCount int `json:"modifiedCount"`
		UpsertedCount int `json:"upsertedCount"`
	} `json:"result"`
}

// UserSearch is the data block of GET /admin/users/search.
type UserSearch struct {
	Users []User `json:"users"`
	Count int    `json:"count"`
}

// BalanceAdjustment is the POST /admin/users/balance body.
type BalanceAdjustment struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"dgt0"`
	Type        string          `json:"type" validate:"required"`
	Description string          `json:"description"`
}

// RankUpdate is the PATCH /admin/users/rank body.
type RankUpdate struct {
	UserID string `json:"userId" validate:"required"`
	Rank   int    `json:"rank" validate:"gte=0"`
}

// RankResult is the data block of PATCH /admin/users/rank.
type RankResult struct {
	User struct {
		UserID int64  `json:"userId"`
		Name   string `json:"name"`
		Rank   int    `json:"rank"`
	} `json:"user"`
}

// SystemLog is one admin log line.
type SystemLog struct {
	ID        string         `json:"_id,omitempty"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
}

// LogPage is the data block of GET /admin/logs.
type LogPage struct {
	Logs       []SystemLog `json:"logs"`
	Pagination Pagination  `json:"pagination"`
}

// ReportRequest is the POST /admin/reports body.
type ReportRequest struct {
	Type      string `json:"type" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// Report is the data block of POST /admin/reports. Its shape depends on the
// report type, so it stays raw.
type Report struct {
	Report json.RawMessage `json:"report"`
}

// SchedulerResult is the data block of POST /admin/scheduler.
type SchedulerResult struct {
	Task   string         `json:"task"`
	Result map[string]any `json:"result,omitempty"`
}
