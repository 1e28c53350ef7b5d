package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/tree"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// incomeTypes are the filters offered above the income table.
var incomeTypes = []model.IncomeType{
	model.IncomeAll, model.IncomeROI, model.IncomeLevel,
	model.IncomeBinary, model.IncomeAutopool, model.IncomeReward,
}

// PageHandler serves the signed-in pages: the dashboard, the referral tree
// and the wallet forms posted from the dashboard. Forms follow
// post/redirect/get; their outcome reaches the next render as a flash.
type PageHandler struct {
	portal *service.Portal
	pages  *Renderer
	logger *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(portal *service.Portal, pages *Renderer, logger *slog.Logger) *PageHandler {
	return &PageHandler{portal: portal, pages: pages, logger: logger}
}

type dashboardView struct {
	Dashboard    model.Dashboard
	HasDashboard bool
	Incomes      model.IncomePage
	IncomeType   string
	IncomeTypes  []model.IncomeType
	Wallet       string
}

// HandleDashboard renders the dashboard with one page of income history.
//
// HTTP: GET /dashboard?type=roi&page=2
//
// A failed refresh keeps the data from the last successful one; the error
// shows as a banner.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	s, err := h.portal.Session(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := h.portal.Views(id)

	if _, err := views.Dashboard.Refresh(r.Context()); expired(err) {
		h.fail(w, r, err)
		return
	}
	kind := incomeFilter(r.URL.Query().Get("type"))
	if _, err := views.Incomes.Select(r.Context(), queryInt(r, "page", 1), kind); expired(err) {
		h.fail(w, r, err)
		return
	}

	dash := views.Dashboard.State()
	view := dashboardView{
		Dashboard:    dash.Data,
		HasDashboard: dash.HasData,
		Incomes:      views.Incomes.State().Data,
		IncomeType:   kind,
		IncomeTypes:  incomeTypes,
		Wallet:       s.User.WalletAddress,
	}
	h.pages.Render(w, http.StatusOK, "dashboard", pageData{
		Title:   "Dashboard",
		User:    &s.User,
		Flashes: views.Flash.Drain(),
		Data:    view,
	})
}

// HandleWithdraw submits a withdrawal from the dashboard form.
//
// HTTP: POST /withdraw  (amount, walletAddress)
func (h *PageHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	views := h.portal.Views(sessionID(r))

	req, err := validate.Withdrawal(r.PostFormValue("amount"), r.PostFormValue("walletAddress"))
	if err == nil {
		_, err = views.Withdraw.Submit(r.Context(), req)
	} else {
		views.Flash.Error(apperror.UserMessage(err))
	}
	h.after(w, r, err)
}

// HandlePurchase buys a package from the dashboard form.
//
// HTTP: POST /purchase  (packageIndex, position)
func (h *PageHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	views := h.portal.Views(sessionID(r))

	req, err := purchaseForm(r)
	if err != nil {
		views.Flash.Error(apperror.UserMessage(err))
	} else {
		_, err = views.Purchase.Submit(r.Context(), req)
	}
	h.after(w, r, err)
}

func purchaseForm(r *http.Request) (model.PurchaseRequest, error) {
	index, err := strconv.Atoi(r.PostFormValue("packageIndex"))
	if err != nil {
		return model.PurchaseRequest{}, apperror.ValidationFailed("packageIndex", "Choose a package")
	}
	position := model.PositionLeft
	if r.PostFormValue("position") == "1" {
		position = model.PositionRight
	}
	return validate.Purchase(index, position)
}

// HandleSwap converts between USDT and XEE from the dashboard form. The
// backend checks the balance.
//
// HTTP: POST /swap  (amount, direction)
func (h *PageHandler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	views := h.portal.Views(sessionID(r))

	direction := model.SwapDirection(r.PostFormValue("direction"))
	req, err := validate.Swap(r.PostFormValue("amount"), direction, nil)
	if err != nil {
		views.Flash.Error(apperror.UserMessage(err))
	} else {
		_, err = views.Swap.Submit(r.Context(), req)
	}
	h.after(w, r, err)
}

// HandleTree renders the referral tree.
//
// HTTP: GET /tree?root=107&expand=212
//
// root defaults to the viewer. expand toggles the details of one node in
// the tree already loaded for that root, without refetching it.
func (h *PageHandler) HandleTree(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	s, err := h.portal.Session(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := h.portal.Views(id)

	root := int64(queryInt(r, "root", 0))
	var view tree.View
	if expand := int64(queryInt(r, "expand", 0)); expand != model.EmptyUserID {
		view, err = h.portal.ToggleNode(r.Context(), id, root, expand)
	} else {
		view, err = h.portal.Tree(r.Context(), id, root)
	}
	if err != nil {
		if expired(err) {
			h.fail(w, r, err)
			return
		}
		views.Flash.Error(apperror.UserMessage(err))
	}

	var fragment template.HTML
	if view.Root != nil {
		if fragment, err = tree.HTML(view, "/tree"); err != nil {
			h.logger.Error("failed to render tree", slog.String("error", err.Error()))
			views.Flash.Error(apperror.UserMessage(err))
		}
	}
	h.pages.Render(w, http.StatusOK, "tree", pageData{
		Title:   "Binary tree",
		User:    &s.User,
		Flashes: views.Flash.Drain(),
		Data:    fragment,
	})
}

// after finishes a form post: back to the dashboard, or to the login page
// when the session died on the way.
func (h *PageHandler) after(w http.ResponseWriter, r *http.Request, err error) {
	if expired(err) {
		expirePage(w, r, h.portal, h.logger)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// fail handles an error that leaves nothing to render.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if expired(err) {
		expirePage(w, r, h.portal, h.logger)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	h.logger.Error("page failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, apperror.UserMessage(err), apperror.HTTPStatus(err))
}

func expired(err error) bool {
	return errors.Is(err, apperror.ErrSessionExpired)
}

// incomeFilter maps the ?type= value onto a known income type.
func incomeFilter(s string) string {
	for _, t := range incomeTypes {
		if string(t) == s {
			return s
		}
	}
	return string(model.IncomeAll)
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
