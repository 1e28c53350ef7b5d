package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a wallet movement (deposit, withdrawal, purchase, swap, …).
type Transaction struct {
	ID            string          `json:"_id,omitempty"`
	UserID        int64           `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	AmountUSD     decimal.Decimal `json:"amountUSD"`
	Fee           decimal.Decimal `json:"fee"`
	Status        string          `json:"status"`
	Description   string          `json:"description,omitempty"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Meta          map[string]any  `json:"meta,omitempty"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
}

// TransactionFilter narrows a transaction listing. Zero values are omitted
// from the query string.
type TransactionFilter struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

// TransactionPage is a paginated transaction list.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// DepositRequest is the POST /transactions/deposit body.
type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"dgt0"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
}

// PaymentInfo tells the user where to complete a deposit.
type PaymentInfo struct {
	GatewayURL    string          `json:"gatewayUrl"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// DepositResult is the data block of POST /transactions/deposit.
type DepositResult struct {
	Transaction Transaction `json:"transaction"`
	PaymentInfo PaymentInfo `json:"paymentInfo"`
}

// WithdrawalRequest is the POST /transactions/withdraw body.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"dgt0"`
	WalletAddress string          `json:"walletAddress" validate:"required"`
}

// WithdrawalResult is the data block of POST /transactions/withdraw.
type WithdrawalResult struct {
	Transaction Transaction     `json:"transaction"`
	Fee         decimal.Decimal `json:"fee"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	Status      string          `json:"status"`
}

// TransactionStats is the data block of GET /transactions/stats/summary.
type TransactionStats struct {
	Stats struct {
		TotalDeposits      decimal.Decimal `json:"totalDeposits"`
		TotalWithdrawals   decimal.Decimal `json:"totalWithdrawals"`
		TotalPurchases     decimal.Decimal `json:"totalPurchases"`
		PendingDeposits    decimal.Decimal `json:"pendingDeposits"`
		PendingWithdrawals decimal.Decimal `json:"pendingWithdrawals"`
		Balance            decimal.Decimal `json:"balance"`
	} `json:"stats"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

// SwapDirection is which way a swap converts.
type SwapDirection string

const (
	SwapUSDTToXee SwapDirection = "usdt_to_xee"
	SwapXeeToUSDT SwapDirection = "xee_to_usdt"
)

// SwapRequest is the POST /transactions/swap body.
type SwapRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"dgt0"`
	Direction SwapDirection   `json:"direction" validate:"oneof=usdt_to_xee xee_to_usdt"`
}

// SwapResult is the data block of POST /transactions/swap.
type SwapResult struct {
	Transaction Transaction `json:"transaction"`
	SwapDetails struct {
		Direction    SwapDirection   `json:"direction"`
		InputAmount  decimal.Decimal `json:"inputAmount"`
		OutputAmount decimal.Decimal `json:"outputAmount"`
		Fee          decimal.Decimal `json:"fee"`
		BurnAmount   decimal.Decimal `json:"burnAmount"`
		XeenuxPrice  decimal.Decimal `json:"xeenuxPrice"`
	} `json:"swapDetails"`
}

// DepositConfirmation is the payment-gateway webhook body.
type DepositConfirmation struct {
	TransactionID    string `json:"transactionId" validate:"required"`
	Status           string `json:"status" validate:"oneof=completed failed cancelled"`
	GatewayReference string `json:"gatewayReference" validate:"required"`
}

// WithdrawalDecision is the admin POST /transactions/process-withdrawal body.
type WithdrawalDecision struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Status        string `json:"status" validate:"oneof=completed failed cancelled"`
	Remarks       string `json:"remarks"`
}

// TransactionEnvelope wraps a single transaction result.
type TransactionEnvelope struct {
	Transaction Transaction `json:"transaction"`
}
