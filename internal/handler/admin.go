package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
)

// AdminHandler serves /api/admin. The backend enforces the admin role on
// its side too; checking it here spares non-admins a round trip and keeps
// admin routes from showing up as backend 403s in the logs.
type AdminHandler struct {
	portal *service.Portal
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(portal *service.Portal, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{portal: portal, logger: logger}
}

// RequireAdmin lets a request through only when the signed-in user is an
// administrator.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.portal.Session(r.Context(), sessionID(r))
		if err != nil {
			apiError(w, r, h.portal, h.logger, err)
			return
		}
		if !s.User.IsAdmin() {
			h.logger.Warn("admin route refused",
				slog.Int64("userId", s.User.UserID),
				slog.String("path", r.URL.Path),
			)
			writeError(w, apperror.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Routes registers the admin routes on r. Callers mount it behind
// RequireAdmin.
func (h *AdminHandler) Routes(r chi.Router) {
	ok := http.StatusOK
	p, l := h.portal, h.logger

	r.Get("/dashboard", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.AdminDashboard, error) {
		return a.Admin.Dashboard(ctx)
	}))

	// settings
	r.Get("/settings", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Settings, error) {
		return a.Admin.Settings(ctx, r.URL.Query().Get("group"))
	}))
	r.Patch("/settings", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Setting, error) {
		req, err := bind[model.SettingUpdate](r)
		if err != nil {
			return model.Setting{}, err
		}
		return a.Admin.UpdateSetting(ctx, req)
	}))
	r.Post("/settings/initialize", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.InitializeResult, error) {
		return a.Admin.InitializeSettings(ctx)
	}))

	// users
	r.Get("/users/search", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.UserSearch, error) {
		q := strings.TrimSpace(r.URL.Query().Get("query"))
		if q == "" {
			return model.UserSearch{}, apperror.ValidationFailed("query", "query is required")
		}
		return a.Admin.SearchUsers(ctx, q, r.URL.Query().Get("field"))
	}))
	r.Get("/users/{userId}/transactions", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.TransactionPage, error) {
		return a.Admin.UserTransactions(ctx, chi.URLParam(r, "userId"), r.URL.Query().Get("type"), pageOf(r))
	}))
	r.Get("/users/{userId}/activities", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.ActivityPage, error) {
		return a.Admin.UserActivities(ctx, chi.URLParam(r, "userId"), activityType(r), pageOf(r))
	}))
	r.Post("/users/balance", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.TransactionEnvelope, error) {
		req, err := bind[model.BalanceAdjustment](r)
		if err != nil {
			return model.TransactionEnvelope{}, err
		}
		return a.Admin.AddBalance(ctx, req)
	}))
	r.Patch("/users/rank", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.RankResult, error) {
		req, err := bind[model.RankUpdate](r)
		if err != nil {
			return model.RankResult{}, err
		}
		return a.Admin.UpdateRank(ctx, req)
	}))

	// transactions
	r.Get("/transactions/recent", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.TransactionPage, error) {
		return a.Admin.RecentTransactions(ctx, transactionFilter(r))
	}))
	r.Post("/withdrawals/process", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Transaction, error) {
		req, err := bind[model.WithdrawalDecision](r)
		if err != nil {
			return model.Transaction{}, err
		}
		return a.Transactions.ProcessWithdrawal(ctx, req)
	}))
	r.Post("/deposits/confirm", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Transaction, error) {
		req, err := bind[model.DepositConfirmation](r)
		if err != nil {
			return model.Transaction{}, err
		}
		return a.Transactions.ConfirmDeposit(ctx, req)
	}))

	// operations
	r.Post("/scheduler/{task}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.SchedulerResult, error) {
		return a.Admin.RunScheduler(ctx, chi.URLParam(r, "task"))
	}))
	r.Get("/logs", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.LogPage, error) {
		return a.Admin.Logs(ctx, pageOf(r))
	}))
	r.Post("/reports", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Report, error) {
		req, err := bind[model.ReportRequest](r)
		if err != nil {
			return model.Report{}, err
		}
		return a.Admin.Report(ctx, req)
	}))
	r.Post("/income/process-roi", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.ROIResult, error) {
		return a.Income.ProcessROI(ctx)
	}))
	r.Post("/income/process-binary", relay(p, l, ok, func(ctx context.Context, a *api.API, _ *http.Request) (model.BinaryResult, error) {
		return a.Income.ProcessBinary(ctx)
	}))

	// packages
	r.Post("/packages", relay(p, l, http.StatusCreated, func(ctx context.Context, a *api.API, r *http.Request) (model.Package, error) {
		in, err := bind[model.PackageInput](r)
		if err != nil {
			return model.Package{}, err
		}
		if in.Name == nil || in.PriceUSD == nil {
			return model.Package{}, apperror.ValidationFailed("name", "name and priceUSD are required")
		}
		return a.Packages.Create(ctx, in)
	}))
	r.Put("/packages/{id}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (model.Package, error) {
		id, err := intParam(r, "id")
		if err != nil {
			return model.Package{}, err
		}
		in, err := bind[model.PackageInput](r)
		if err != nil {
			return model.Package{}, err
		}
		return a.Packages.Update(ctx, id, in)
	}))
	r.Delete("/packages/{id}", relay(p, l, ok, func(ctx context.Context, a *api.API, r *http.Request) (message, error) {
		id, err := intParam(r, "id")
		if err != nil {
			return message{}, err
		}
		if err := a.Packages.Delete(ctx, id); err != nil {
			return message{}, err
		}
		return message{Message: "Package deleted"}, nil
	}))
}
