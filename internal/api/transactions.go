package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
)

type Transactions struct{ d Doer }

func (t *Transactions) List(ctx context.Context, f model.TransactionFilter) (model.TransactionPage, error) {
	q := Page{Page: f.Page, Limit: f.Limit}.values()
	setIf(q, "type", f.Type)
	setIf(q, "status", f.Status)
	return get[model.TransactionPage](ctx, t.d, "/transactions", q)
}

func (t *Transactions) Get(ctx context.Context, id string) (model.Transaction, error) {
	out, err := get[model.TransactionEnvelope](ctx, t.d, "/transactions/"+url.PathEscape(id), nil)
	return out.Transaction, err
}

func (t *Transactions) Deposit(ctx context.Context, req model.DepositRequest) (model.DepositResult, error) {
	return send[model.DepositResult](ctx, t.d, http.MethodPost, "/transactions/deposit", req)
}

func (t *Transactions) Withdraw(ctx context.Context, req model.WithdrawalRequest) (model.WithdrawalResult, error) {
	return send[model.WithdrawalResult](ctx, t.d, http.MethodPost, "/transactions/withdraw", req)
}

func (t *Transactions) Stats(ctx context.Context) (model.TransactionStats, error) {
	return get[model.TransactionStats](ctx, t.d, "/transactions/stats/summary", nil)
}

func (t *Transactions) Swap(ctx context.Context, req model.SwapRequest) (model.SwapResult, error) {
	return send[model.SwapResult](ctx, t.d, http.MethodPost, "/transactions/swap", req)
}

// ConfirmDeposit relays a payment-gateway webhook. It is unauthenticated.
func (t *Transactions) ConfirmDeposit(ctx context.Context, req model.DepositConfirmation) (model.Transaction, error) {
	var out model.TransactionEnvelope
	err := t.d.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/transactions/confirm-deposit",
		Body:   req,
		Public: true,
	}, &out)
	return out.Transaction, err
}

// ProcessWithdrawal approves or rejects a pending withdrawal (admin).
func (t *Transactions) ProcessWithdrawal(ctx context.Context, req model.WithdrawalDecision) (model.Transaction, error) {
	out, err := send[model.TransactionEnvelope](ctx, t.d, http.MethodPost, "/transactions/process-withdrawal", req)
	return out.Transaction, err
}
