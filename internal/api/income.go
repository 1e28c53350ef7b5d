package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
)

type Income struct{ d Doer }

// List returns one page of the income ledger filtered by type.
func (i *Income) List(ctx context.Context, kind model.IncomeType, p Page) (model.IncomePage, error) {
	q := p.values()
	if kind == "" {
		kind = model.IncomeAll
	}
	q.Set("type", string(kind))
	return get[model.IncomePage](ctx, i.d, "/income", q)
}

func (i *Income) ProcessROI(ctx context.Context) (model.ROIResult, error) {
	return send[model.ROIResult](ctx, i.d, http.MethodPost, "/income/process-roi", nil)
}

func (i *Income) ProcessBinary(ctx context.Context) (model.BinaryResult, error) {
	return send[model.BinaryResult](ctx, i.d, http.MethodPost, "/income/process-binary", nil)
}

func (i *Income) Withdraw(ctx context.Context, amount decimal.Decimal) (model.IncomeWithdrawal, error) {
	body := map[string]decimal.Decimal{"amount": amount}
	return send[model.IncomeWithdrawal](ctx, i.d, http.MethodPost, "/income/withdraw", body)
}

type Binary struct{ d Doer }

// Tree returns the caller's own tree to the given depth.
func (b *Binary) Tree(ctx context.Context, depth int) (model.BinaryTreePayload, error) {
	q := url.Values{}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	return get[model.BinaryTreePayload](ctx, b.d, "/binary/tree", q)
}

// Node fetches one placement-tree node and normalises it. Asking for the
// empty sentinel is a caller bug and is rejected without a request.
func (b *Binary) Node(ctx context.Context, userID int64) (model.BinaryNode, error) {
	if userID == model.EmptyUserID {
		return model.BinaryNode{}, apperror.ValidationFailed("userId", "cannot fetch the empty slot")
	}

	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	q.Set("depth", "1")

	payload, err := get[model.BinaryTreePayload](ctx, b.d, "/binary/tree", q)
	if err != nil {
		return model.BinaryNode{}, err
	}

	n := model.NormalizeNode(payload)
	if n.Empty() {
		return model.BinaryNode{}, apperror.NotFound("binary node", strconv.FormatInt(userID, 10))
	}
	return n, nil
}

func (b *Binary) Legs(ctx context.Context) (model.BinaryLegs, error) {
	return get[model.BinaryLegs](ctx, b.d, "/binary/legs", nil)
}

func (b *Binary) PendingIncome(ctx context.Context) (model.PendingBinaryIncome, error) {
	return get[model.PendingBinaryIncome](ctx, b.d, "/binary/pending-income", nil)
}

func (b *Binary) Analysis(ctx context.Context) (model.BinaryAnalysis, error) {
	return get[model.BinaryAnalysis](ctx, b.d, "/binary/analysis", nil)
}

type Autopool struct{ d Doer }

func (a *Autopool) Position(ctx context.Context) (model.AutopoolPosition, error) {
	return get[model.AutopoolPosition](ctx, a.d, "/autopool/position", nil)
}

func (a *Autopool) Income(ctx context.Context, p Page) (model.AutopoolIncomePage, error) {
	return get[model.AutopoolIncomePage](ctx, a.d, "/autopool/income", p.values())
}

func (a *Autopool) Team(ctx context.Context) (model.AutopoolTeam, error) {
	return get[model.AutopoolTeam](ctx, a.d, "/autopool/team", nil)
}
