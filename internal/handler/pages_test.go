package handler_test

import (
	"context"
	"errors"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/handler"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
)

// =========================================================================
// LOGIN / LOGOUT
// =========================================================================

func TestAuthHandler_Login(t *testing.T) {
	e := newEnv(t)
	h := handler.NewAuthHandler(e.auth, e.tokens, e.pages, false, e.logger)

	t.Run("form renders", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLoginPage(rr, httptest.NewRequest(http.MethodGet, "/login?expired=1", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `action="/login"`)
		assert.Contains(t, rr.Body.String(), "Your session has expired")
	})

	t.Run("signed-in users skip the form", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLoginPage(rr, as(httptest.NewRequest(http.MethodGet, "/login", nil), "s1"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
	})

	t.Run("good credentials set the cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, form(http.MethodPost, "/login", url.Values{
			"email":    {"ada@example.com"},
			"password": {"secret1"},
		}))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

		c := cookie(rr, auth.CookieName)
		require.NotNil(t, c)
		assert.True(t, c.HttpOnly)

		id, err := e.tokens.Validate(c.Value)
		require.NoError(t, err)
		s, err := e.portal.Session(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(42), s.User.UserID)
	})

	t.Run("bad credentials show the backend message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, form(http.MethodPost, "/login", url.Values{
			"email":    {"ada@example.com"},
			"password": {"wrong"},
		}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid email or password")
		assert.Contains(t, rr.Body.String(), `value="ada@example.com"`, "email is kept")
		assert.Nil(t, cookie(rr, auth.CookieName))
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEnv(t)
	h := handler.NewAuthHandler(e.auth, e.tokens, e.pages, false, e.logger)
	id := e.login(t, "ada@example.com")

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, as(httptest.NewRequest(http.MethodPost, "/logout", nil), id))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	c := cookie(rr, auth.CookieName)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)

	_, err := e.portal.Session(context.Background(), id)
	assert.True(t, errors.Is(err, apperror.ErrSessionExpired))
}

// =========================================================================
// REGISTER / PASSWORD RESET
// =========================================================================

func TestAuthHandler_Register(t *testing.T) {
	e := newEnv(t)
	h := handler.NewAuthHandler(e.auth, e.tokens, e.pages, false, e.logger)

	t.Run("referral link prefills the sponsor", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleRegisterPage(rr, httptest.NewRequest(http.MethodGet, "/register?ref=42&position=1", nil))

		assert.Contains(t, rr.Body.String(), `name="referrerId" value="42"`)
		assert.Contains(t, rr.Body.String(), `value="1" checked`)
	})

	t.Run("new account is signed in", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, form(http.MethodPost, "/register", url.Values{
			"name":          {"Grace"},
			"email":         {"grace@example.com"},
			"countryCode":   {"+1"},
			"phone":         {"555 0100"},
			"password":      {"secret1"},
			"walletAddress": {"0xgrace"},
			"referrerId":    {"42"},
			"position":      {"1"},
		}))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		require.NotNil(t, cookie(rr, auth.CookieName))
		assert.JSONEq(t, `{
			"name":"Grace","email":"grace@example.com","phone":"+15550100","password":"secret1",
			"walletAddress":"0xgrace","referrerId":42,"position":1
		}`, string(e.backend.Body("POST /auth/register")))
	})

	t.Run("taken email re-renders with the form kept", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, form(http.MethodPost, "/register", url.Values{
			"name":          {"Ada"},
			"email":         {"ada@example.com"},
			"phone":         {"1"},
			"password":      {"secret1"},
			"walletAddress": {"0xada"},
		}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Email already registered")
		assert.Contains(t, rr.Body.String(), `value="0xada"`)
	})
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	e := newEnv(t)
	h := handler.NewAuthHandler(e.auth, e.tokens, e.pages, false, e.logger)
	router := chi.NewRouter()
	router.Post("/forgot-password", h.HandleForgot)
	router.Get("/reset-password/{token}", h.HandleResetPage)
	router.Post("/reset-password/{token}", h.HandleReset)

	t.Run("forgot always confirms", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, form(http.MethodPost, "/forgot-password", url.Values{"email": {"ada@example.com"}}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "reset link is on its way")
	})

	t.Run("reset form posts back to its token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reset-password/reset-ok", nil))
		assert.Contains(t, rr.Body.String(), `action="/reset-password/reset-ok"`)
	})

	t.Run("mismatch never reaches the backend", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, form(http.MethodPost, "/reset-password/reset-ok", url.Values{
			"password":        {"newpass"},
			"confirmPassword": {"other"},
		}))

		assert.Contains(t, rr.Body.String(), "Passwords do not match")
		assert.Zero(t, e.backend.Calls("POST /auth/reset-password/reset-ok"))
	})

	t.Run("success goes to login", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, form(http.MethodPost, "/reset-password/reset-ok", url.Values{
			"password":        {"newpass"},
			"confirmPassword": {"newpass"},
		}))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login?reset=1", rr.Header().Get("Location"))
	})
}

// =========================================================================
// DASHBOARD / TREE
// =========================================================================

func TestPageHandler_Dashboard(t *testing.T) {
	e := newEnv(t)
	h := handler.NewPageHandler(e.portal, e.pages, e.logger)
	e.backend.AddIncome(model.Income{Type: model.IncomeROI, Amount: decimal.RequireFromString("12.5"), Description: "daily roi"})
	id := e.login(t, "ada@example.com")

	rr := httptest.NewRecorder()
	h.HandleDashboard(rr, as(httptest.NewRequest(http.MethodGet, "/dashboard?type=roi", nil), id))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "125.00")
	assert.Contains(t, body, "12.50")
	assert.Contains(t, body, "daily roi")
	assert.Contains(t, body, `value="0xada"`, "withdraw form defaults to the wallet on file")
}

func TestPageHandler_DashboardKeepsLastDataOnFailure(t *testing.T) {
	e := newEnv(t)
	h := handler.NewPageHandler(e.portal, e.pages, e.logger)
	id := e.login(t, "ada@example.com")

	rr := httptest.NewRecorder()
	h.HandleDashboard(rr, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), id))
	require.Equal(t, http.StatusOK, rr.Code)

	e.backend.Fail("GET /users/dashboard", http.StatusInternalServerError, "Database unavailable")
	rr = httptest.NewRecorder()
	h.HandleDashboard(rr, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), id))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Database unavailable")
	assert.Contains(t, rr.Body.String(), "125.00", "stale figures still shown")
}

func TestPageHandler_ExpiredSessionRedirects(t *testing.T) {
	e := newEnv(t)
	h := handler.NewPageHandler(e.portal, e.pages, e.logger)
	id := e.login(t, "ada@example.com")

	e.backend.ExpireAccessTokens()
	e.backend.DisableRefresh()

	rr := httptest.NewRecorder()
	h.HandleDashboard(rr, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), id))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?expired=1", rr.Header().Get("Location"))
	c := cookie(rr, auth.CookieName)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)
}

func TestPageHandler_Withdraw(t *testing.T) {
	e := newEnv(t)
	h := handler.NewPageHandler(e.portal, e.pages, e.logger)
	id := e.login(t, "ada@example.com")
	views := e.portal.Views(id)

	t.Run("bad amount is caught locally", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleWithdraw(rr, as(form(http.MethodPost, "/withdraw", url.Values{
			"amount":        {"ten"},
			"walletAddress": {"0xada"},
		}), id))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, []service.Flash{{Kind: service.FlashError, Message: "amount must be a number"}}, views.Flash.Drain())
		assert.Zero(t, e.backend.Calls("POST /transactions/withdraw"))
	})

	t.Run("valid withdrawal is submitted", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleWithdraw(rr, as(form(http.MethodPost, "/withdraw", url.Values{
			"amount":        {"25"},
			"walletAddress": {"0xada"},
		}), id))

		assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
		assert.JSONEq(t, `{"amount":25,"walletAddress":"0xada"}`, string(e.backend.Body("POST /transactions/withdraw")))
		assert.Equal(t, []service.Flash{{Kind: service.FlashSuccess, Message: "Withdrawal requested"}}, views.Flash.Drain())
	})
}

func TestPageHandler_Tree(t *testing.T) {
	e := newEnv(t)
	h := handler.NewPageHandler(e.portal, e.pages, e.logger)
	e.backend.AddNode(model.BinaryNode{UserID: 42, Name: "Ada", LeftChildID: 107})
	e.backend.AddNode(model.BinaryNode{UserID: 107, Name: "Bob", LeftCount: 7})
	id := e.login(t, "ada@example.com")

	rr := httptest.NewRecorder()
	h.HandleTree(rr, as(httptest.NewRequest(http.MethodGet, "/tree", nil), id))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "#42 Ada")
	assert.Contains(t, rr.Body.String(), "#107 Bob")
	assert.Contains(t, rr.Body.String(), "Empty slot")
	loaded := e.backend.Calls("GET /binary/tree")

	rr = httptest.NewRecorder()
	h.HandleTree(rr, as(httptest.NewRequest(http.MethodGet, "/tree?root=42&expand=107", nil), id))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "L 7 / R 0")
	assert.Equal(t, loaded, e.backend.Calls("GET /binary/tree"), "expanding reuses the loaded tree")

	m := regexp.MustCompile(`class="tree-toggle" href="([^"]+)">less`).FindStringSubmatch(rr.Body.String())
	require.Len(t, m, 2, "expanded node offers a collapse link")
	collapse := html.UnescapeString(m[1])
	assert.Equal(t, "/tree?root=42&expand=107", collapse)

	rr = httptest.NewRecorder()
	h.HandleTree(rr, as(httptest.NewRequest(http.MethodGet, collapse, nil), id))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "L 7 / R 0")
	assert.Equal(t, loaded, e.backend.Calls("GET /binary/tree"), "collapsing reuses the loaded tree")
}
