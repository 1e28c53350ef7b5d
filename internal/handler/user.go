package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// call is one backend operation made on behalf of the session behind r.
type call[T any] func(ctx context.Context, a *api.API, r *http.Request) (T, error)

// relay adapts a call into a handler: it runs the call with the session's
// API and writes the result, or the error, as JSON.
func relay[T any](portal *service.Portal, logger *slog.Logger, status int, fn call[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context(), portal.API(sessionID(r)), r)
		if err != nil {
			apiError(w, r, portal, logger, err)
			return
		}
		writeJSON(w, status, out)
	}
}

// bind decodes a JSON body into T and validates it.
func bind[T any](r *http.Request) (T, error) {
	var v T
	if err := decodeJSON(r, &v); err != nil {
		return v, err
	}
	if err := validate.Struct(v); err != nil {
		return v, err
	}
	return v, nil
}

// message is the data block of calls that only succeed or fail.
type message struct {
	Message string `json:"message"`
}

// UserHandler serves the signed-in user's JSON API under /api. Every route
// is a thin relay to the backend with the session's tokens attached.
type UserHandler struct {
	portal *service.Portal
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(portal *service.Portal, logger *slog.Logger) *UserHandler {
	return &UserHandler{portal: portal, logger: logger}
}

// Routes registers the user routes on r.
func (h *UserHandler) Routes(r chi.Router) {
	ok := http.StatusOK
	p, l := h.portal, h.logger

	// profile and account
	r.Get("/me", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.Profile, error) {
		return a.Users.Me(ctx)
	}))
	r.Patch("/me", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.User, error) {
		req, err := bind[model.ProfileUpdate](r)
		if err != nil {
			return model.User{}, err
		}
		return a.Users.UpdateMe(ctx, req)
	}))
	r.Get("/dashboard", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.Dashboard, error) {
		return a.Users.Dashboard(ctx)
	}))
	r.Get("/binary-tree", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.UserBinaryTree, error) {
		return a.Users.BinaryTree(ctx)
	}))
	r.Get("/team/{level}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.TeamPage, error) {
		level, err := strconv.Atoi(chi.URLParam(r, "level"))
		if err != nil || level < 1 {
			return model.TeamPage{}, apperror.ValidationFailed("level", "level must be a positive number")
		}
		return a.Users.Team(ctx, level, pageOf(r))
	}))
	r.Get("/activities", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.ActivityPage, error) {
		return a.Users.Activities(ctx, activityType(r), pageOf(r))
	}))
	r.Patch("/password", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (message, error) {
		req, err := bind[model.PasswordUpdate](r)
		if err != nil {
			return message{}, err
		}
		if err := a.Auth.UpdatePassword(ctx, req); err != nil {
			return message{}, err
		}
		return message{Message: "Password updated"}, nil
	}))

	// packages
	r.Get("/my-packages", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.UserPackages, error) {
		return a.Users.Packages(ctx)
	}))
	r.Get("/packages", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.PackageList, error) {
		return a.Packages.List(ctx)
	}))
	r.Get("/packages/{id}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Package, error) {
		id, err := intParam(r, "id")
		if err != nil {
			return model.Package{}, err
		}
		return a.Packages.Get(ctx, id)
	}))
	r.Post("/packages/purchase", relay(p, l, http.StatusCreated, func(ctx context.Context, a *api.API, r *http.Request) (model.PurchaseResult, error) {
		req, err := bind[model.PurchaseRequest](r)
		if err != nil {
			return model.PurchaseResult{}, err
		}
		return a.Packages.Purchase(ctx, req)
	}))

	// incomes
	r.Get("/incomes", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.IncomePage, error) {
		return a.Income.List(ctx, model.IncomeType(incomeFilter(r.URL.Query().Get("type"))), pageOf(r))
	}))
	r.Post("/incomes/withdraw", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.IncomeWithdrawal, error) {
		// amount may arrive as a JSON number or a string
		req, err := bind[struct {
			Amount decimal.Decimal `json:"amount" validate:"dgt0"`
		}](r)
		if err != nil {
			return model.IncomeWithdrawal{}, err
		}
		return a.Income.Withdraw(ctx, req.Amount)
	}))

	// binary network
	r.Get("/binary/tree", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.BinaryTreePayload, error) {
		return a.Binary.Tree(ctx, queryInt(r, "depth", 0))
	}))
	r.Get("/binary/node/{userId}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.BinaryNode, error) {
		id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
		if err != nil {
			return model.BinaryNode{}, apperror.ValidationFailed("userId", "userId must be a number")
		}
		return a.Binary.Node(ctx, id)
	}))
	r.Get("/binary/legs", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.BinaryLegs, error) {
		return a.Binary.Legs(ctx)
	}))
	r.Get("/binary/pending-income", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.PendingBinaryIncome, error) {
		return a.Binary.PendingIncome(ctx)
	}))
	r.Get("/binary/analysis", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.BinaryAnalysis, error) {
		return a.Binary.Analysis(ctx)
	}))

	// autopool
	r.Get("/autopool/position", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.AutopoolPosition, error) {
		return a.Autopool.Position(ctx)
	}))
	r.Get("/autopool/income", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.AutopoolIncomePage, error) {
		return a.Autopool.Income(ctx, pageOf(r))
	}))
	r.Get("/autopool/team", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.AutopoolTeam, error) {
		return a.Autopool.Team(ctx)
	}))

	// transactions
	r.Get("/transactions", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.TransactionPage, error) {
		return a.Transactions.List(ctx, transactionFilter(r))
	}))
	r.Get("/transactions/stats", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.TransactionStats, error) {
		return a.Transactions.Stats(ctx)
	}))
	r.Get("/transactions/{id}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Transaction, error) {
		return a.Transactions.Get(ctx, chi.URLParam(r, "id"))
	}))
	r.Post("/transactions/deposit", relay(p, l, http.StatusCreated, func(ctx context.Context, a *api.API, r *http.Request) (model.DepositResult, error) {
		req, err := bind[model.DepositRequest](r)
		if err != nil {
			return model.DepositResult{}, err
		}
		return a.Transactions.Deposit(ctx, req)
	}))
	r.Post("/transactions/withdraw", relay(p, l, http.StatusCreated, func(ctx context.Context, a *api.API, r *http.Request) (model.WithdrawalResult, error) {
		req, err := bind[model.WithdrawalRequest](r)
		if err != nil {
			return model.WithdrawalResult{}, err
		}
		return a.Transactions.Withdraw(ctx, req)
	}))
	r.Post("/transactions/swap", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.SwapResult, error) {
		req, err := bind[model.SwapRequest](r)
		if err != nil {
			return model.SwapResult{}, err
		}
		return a.Transactions.Swap(ctx, req)
	}))
}

// pageOf reads ?page= and ?limit=, defaulting to the portal's page size.
func pageOf(r *http.Request) api.Page {
	return api.Page{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", service.PageSize),
	}
}

func transactionFilter(r *http.Request) model.TransactionFilter {
	p := pageOf(r)
	return model.TransactionFilter{
		Type:   r.URL.Query().Get("type"),
		Status: r.URL.Query().Get("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

// activityType reads ?type= as an activity kind. Absent or malformed means
// all kinds.
func activityType(r *http.Request) *model.ActivityType {
	n, err := strconv.Atoi(r.URL.Query().Get("type"))
	if err != nil || n < int(model.ActivityPurchase) || n > int(model.ActivityWithdrawal) {
		return nil
	}
	t := model.ActivityType(n)
	return &t
}

func intParam(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		return 0, apperror.ValidationFailed(key, key+" must be a number")
	}
	return n, nil
}
