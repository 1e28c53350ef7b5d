package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
)

var nonDigits = regexp.MustCompile(`\D`)

// ParseAmount parses a user-typed amount. Empty, non-numeric, zero and
// negative input is rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, apperror.ValidationFailed("amount", "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.ValidationFailed("amount", "amount must be a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, apperror.ValidationFailed("amount", "amount must be greater than 0")
	}
	return d, nil
}

// Registration is the sign-up form as typed. The phone number is stored as
// country code followed by the digits of the local number.
type Registration struct {
	Name          string
	Email         string
	CountryCode   string
	PhoneNumber   string
	Password      string
	WalletAddress string
	ReferrerID    int64
	Position      model.Position
}

// Request checks the form and builds the POST /auth/register body.
func (r Registration) Request() (model.RegisterRequest, error) {
	req := model.RegisterRequest{
		Name:          strings.TrimSpace(r.Name),
		Email:         strings.TrimSpace(r.Email),
		Password:      r.Password,
		WalletAddress: strings.TrimSpace(r.WalletAddress),
		ReferrerID:    r.ReferrerID,
		Position:      r.Position,
	}
	if digits := nonDigits.ReplaceAllString(r.PhoneNumber, ""); digits != "" {
		req.Phone = strings.TrimSpace(r.CountryCode) + digits
	}

	if err := Struct(req); err != nil {
		return model.RegisterRequest{}, err
	}
	return req, nil
}

// ResetPassword is the reset form: the new password typed twice.
type ResetPassword struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (r ResetPassword) Check() error {
	if r.Password != r.ConfirmPassword {
		return apperror.ValidationFailed("confirmPassword", "Passwords do not match")
	}
	return Struct(r)
}

// ForgotPassword is the "send me a reset link" form.
type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// Check trims and validates the address.
func (f *ForgotPassword) Check() error {
	f.Email = strings.TrimSpace(f.Email)
	return Struct(*f)
}

// Withdrawal checks a typed amount and wallet before POST /transactions/withdraw.
func Withdrawal(amount, wallet string) (model.WithdrawalRequest, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	req := model.WithdrawalRequest{Amount: d, WalletAddress: strings.TrimSpace(wallet)}
	if err := Struct(req); err != nil {
		return model.WithdrawalRequest{}, err
	}
	return req, nil
}

// Swap checks a typed swap. When balance is known the amount may not exceed it.
func Swap(amount string, direction model.SwapDirection, balance *decimal.Decimal) (model.SwapRequest, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return model.SwapRequest{}, err
	}
	req := model.SwapRequest{Amount: d, Direction: direction}
	if err := Struct(req); err != nil {
		return model.SwapRequest{}, err
	}
	if balance != nil && d.GreaterThan(*balance) {
		return model.SwapRequest{}, apperror.ValidationFailed("amount", "amount exceeds available balance")
	}
	return req, nil
}

// Deposit checks a typed deposit before POST /transactions/deposit.
func Deposit(amount, method string) (model.DepositRequest, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return model.DepositRequest{}, err
	}
	req := model.DepositRequest{Amount: d, PaymentMethod: strings.TrimSpace(method)}
	if err := Struct(req); err != nil {
		return model.DepositRequest{}, err
	}
	return req, nil
}

// Purchase checks a package purchase.
func Purchase(packageIndex int, position model.Position) (model.PurchaseRequest, error) {
	req := model.PurchaseRequest{PackageIndex: packageIndex, Position: position}
	if err := Struct(req); err != nil {
		return model.PurchaseRequest{}, err
	}
	return req, nil
}

// Balance checks an admin balance adjustment with a typed amount.
func Balance(userID, amount, kind, description string) (model.BalanceAdjustment, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return model.BalanceAdjustment{}, err
	}
	req := model.BalanceAdjustment{
		UserID:      strings.TrimSpace(userID),
		Amount:      d,
		Type:        strings.TrimSpace(kind),
		Description: description,
	}
	if err := Struct(req); err != nil {
		return model.BalanceAdjustment{}, err
	}
	return req, nil
}
