package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// AuthHandler serves the signed-out pages and logout.
//
//   - GET/POST /login
//   - GET/POST /register          (?ref=&position= prefill from referral links)
//   - GET/POST /forgot-password
//   - GET/POST /reset-password/{token}
//   - POST     /logout
//
// A successful login or registration stores the backend tokens in the
// session store and hands the browser only a signed cookie naming the
// session.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *auth.TokenService
	pages  *Renderer
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks the cookie Secure and
// should be set whenever the portal is served over TLS.
func NewAuthHandler(
	authService *service.AuthService,
	tokens *auth.TokenService,
	pages *Renderer,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		tokens: tokens,
		pages:  pages,
		secure: secure,
		logger: logger,
	}
}

// HandleLoginPage renders the login form. Signed-in users go straight to
// the dashboard.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.SessionIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := pageData{Title: "Log in", Expired: r.URL.Query().Has("expired")}
	switch {
	case r.URL.Query().Has("reset"):
		data.Notice = "Password updated, you can log in now"
	case r.URL.Query().Has("registered"):
		data.Notice = "Account created"
	}
	h.pages.Render(w, http.StatusOK, "login", data)
}

// HandleLogin checks the credentials against the backend.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req := model.LoginRequest{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		data := pageData{Title: "Log in", Form: map[string]string{"email": req.Email}}
		data.fail(err)
		h.pages.Render(w, http.StatusOK, "login", data)
		return
	}

	h.signIn(w, r, res)
}

// HandleRegisterPage renders the sign-up form. Referral links carry the
// referrer and leg in the query string.
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := map[string]string{
		"referrerId": q.Get("ref"),
		"position":   q.Get("position"),
	}
	h.pages.Render(w, http.StatusOK, "register", pageData{Title: "Register", Form: form})
}

// HandleRegister creates the account and signs the new user in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{}
	for _, key := range []string{"name", "email", "countryCode", "phone", "walletAddress", "referrerId", "position"} {
		form[key] = r.PostFormValue(key)
	}

	reg := validate.Registration{
		Name:          form["name"],
		Email:         form["email"],
		CountryCode:   form["countryCode"],
		PhoneNumber:   form["phone"],
		Password:      r.PostFormValue("password"),
		WalletAddress: form["walletAddress"],
		Position:      model.PositionLeft,
	}
	if form["position"] == "1" {
		reg.Position = model.PositionRight
	}
	if ref := strings.TrimSpace(form["referrerId"]); ref != "" {
		// a malformed id is left at 0 and the backend places the user
		// under the default sponsor
		reg.ReferrerID, _ = strconv.ParseInt(ref, 10, 64)
	}

	res, err := h.auth.Register(r.Context(), reg)
	if err != nil {
		data := pageData{Title: "Register", Form: form}
		data.fail(err)
		h.pages.Render(w, http.StatusOK, "register", data)
		return
	}

	h.signIn(w, r, res)
}

// HandleLogout ends the session and clears the cookie. It is served with
// OptionalSession so a stale cookie can still log out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.SessionIDFromContext(r.Context()); ok {
		if err := h.auth.Logout(r.Context(), id); err != nil {
			h.logger.Warn("logout failed", slog.String("session", id), slog.String("error", err.Error()))
		}
	}
	auth.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleForgotPage renders the "send me a reset link" form.
func (h *AuthHandler) HandleForgotPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "forgot", pageData{Title: "Forgot password"})
}

// HandleForgot asks the backend to mail a reset link. The page reads the
// same whether or not the address is registered.
func (h *AuthHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	form := validate.ForgotPassword{Email: r.PostFormValue("email")}

	if err := h.auth.ForgotPassword(r.Context(), form); err != nil {
		data := pageData{Title: "Forgot password", Form: map[string]string{"email": form.Email}}
		data.fail(err)
		h.pages.Render(w, http.StatusOK, "forgot", data)
		return
	}
	h.pages.Render(w, http.StatusOK, "forgot", pageData{Title: "Forgot password", Data: true})
}

// HandleResetPage renders the new-password form for the token in the link.
func (h *AuthHandler) HandleResetPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, "reset", pageData{
		Title: "Reset password",
		Data:  chi.URLParam(r, "token"),
	})
}

// HandleReset sets the new password and sends the user to the login page.
func (h *AuthHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	form := validate.ResetPassword{
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	if err := h.auth.ResetPassword(r.Context(), token, form); err != nil {
		data := pageData{Title: "Reset password", Data: token}
		data.fail(err)
		h.pages.Render(w, http.StatusOK, "reset", data)
		return
	}
	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, res *service.AuthResult) {
	if err := auth.SetCookie(w, h.tokens, res.SessionID, h.secure); err != nil {
		h.logger.Error("failed to issue session cookie", slog.String("error", err.Error()))
		h.pages.Render(w, http.StatusInternalServerError, "login", pageData{
			Title: "Log in",
			Error: "Something went wrong",
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
