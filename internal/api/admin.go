package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/xeenux-portal/internal/model"
)

type Admin struct{ d Doer }

func (a *Admin) Dashboard(ctx context.Context) (model.AdminDashboard, error) {
	return get[model.AdminDashboard](ctx, a.d, "/admin/dashboard", nil)
}

// Settings lists system settings, optionally narrowed to one group.
func (a *Admin) Settings(ctx context.Context, group string) (model.Settings, error) {
	q := url.Values{}
	setIf(q, "group", group)
	return get[model.Settings](ctx, a.d, "/admin/settings", q)
}

func (a *Admin) UpdateSetting(ctx context.Context, req model.SettingUpdate) (model.Setting, error) {
	out, err := send[model.SettingResult](ctx, a.d, http.MethodPatch, "/admin/settings", req)
	return out.Setting, err
}

func (a *Admin) InitializeSettings(ctx context.Context) (model.InitializeResult, error) {
	return send[model.InitializeResult](ctx, a.d, http.MethodPost, "/admin/settings/initialize", nil)
}

// SearchUsers matches query against field (userId, email, name, …).
func (a *Admin) SearchUsers(ctx context.Context, query, field string) (model.UserSearch, error) {
	q := url.Values{}
	q.Set("query", query)
	setIf(q, "field", field)
	return get[model.UserSearch](ctx, a.d, "/admin/users/search", q)
}

func (a *Admin) UserTransactions(ctx context.Context, userID, kind string, p Page) (model.TransactionPage, error) {
	q := p.values()
	setIf(q, "type", kind)
	return get[model.TransactionPage](ctx, a.d, "/admin/users/"+url.PathEscape(userID)+"/transactions", q)
}

func (a *Admin) UserActivities(ctx context.Context, userID string, kind *model.ActivityType, p Page) (model.ActivityPage, error) {
	q := p.values()
	if kind != nil {
		q.Set("type", strconv.Itoa(int(*kind)))
	}
	return get[model.ActivityPage](ctx, a.d, "/admin/users/"+url.PathEscape(userID)+"/activities", q)
}

func (a *Admin) AddBalance(ctx context.Context, req model.BalanceAdjustment) (model.TransactionEnvelope, error) {
	return send[model.TransactionEnvelope](ctx, a.d, http.MethodPost, "/admin/users/balance", req)
}

func (a *Admin) UpdateRank(ctx context.Context, req model.RankUpdate) (model.RankResult, error) {
	return send[model.RankResult](ctx, a.d, http.MethodPatch, "/admin/users/rank", req)
}

func (a *Admin) RecentTransactions(ctx context.Context, f model.TransactionFilter) (model.TransactionPage, error) {
	q := Page{Page: f.Page, Limit: f.Limit}.values()
	setIf(q, "type", f.Type)
	setIf(q, "status", f.Status)
	return get[model.TransactionPage](ctx, a.d, "/admin/transactions/recent", q)
}

// RunScheduler triggers a backend batch job (roi, binary, autopool, …).
func (a *Admin) RunScheduler(ctx context.Context, task string) (model.SchedulerResult, error) {
	return send[model.SchedulerResult](ctx, a.d, http.MethodPost, "/admin/scheduler", map[string]string{"task": task})
}

func (a *Admin) Logs(ctx context.Context, p Page) (model.LogPage, error) {
	return get[model.LogPage](ctx, a.d, "/admin/logs", p.values())
}

func (a *Admin) Report(ctx context.Context, req model.ReportRequest) (model.Report, error) {
	return send[model.Report](ctx, a.d, http.MethodPost, "/admin/reports", req)
}
