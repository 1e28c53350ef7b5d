// Package handler contains the portal's HTTP handlers.
//
// Two surfaces share one set of services:
//
//	pages  (/login, /dashboard, /tree, ...)  server-rendered HTML, PRG forms
//	JSON   (/api/...)                        the backend's envelope, relayed
//
// Handlers parse the request, call into service and write the response.
// They hold no state of their own; view models live per session in
// service.Views.
package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames are the templates rendered inside base.html.
var pageNames = []string{"login", "register", "forgot", "reset", "dashboard", "tree"}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"inc":   func(i int) int { return i + 1 },
	"dec":   func(i int) int { return i - 1 },
}

// pageData is what every page template receives.
type pageData struct {
	Title   string
	User    *model.User
	Flashes []service.Flash
	Notice  string
	Expired bool

	// Form echoes submitted values back after a failed POST.
	Form  map[string]string
	Error string
	Field string

	Data any
}

// fail records err on the page the way the banner and field hint expect it.
func (p *pageData) fail(err error) {
	p.Error = apperror.UserMessage(err)
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		p.Field = appErr.Field
	}
}

// Renderer holds the parsed page templates. Each page is parsed together
// with base.html, which wraps it in the layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses the embedded templates once at startup.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page with data. The page is rendered into a buffer first so
// a template error still produces a clean 500 instead of half a page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown page", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.Warn("failed to write page", slog.String("error", err.Error()))
	}
}

// sessionID returns the id RequireSession put in the context. Routes behind
// RequireSession always have one.
func sessionID(r *http.Request) string {
	id, _ := auth.SessionIDFromContext(r.Context())
	return id
}

// endSession drops the portal session and the cookie after the backend
// refused to renew it. It runs even when the request was cancelled so a
// dead session never lingers in the store.
func endSession(w http.ResponseWriter, r *http.Request, portal *service.Portal, logger *slog.Logger) {
	id := sessionID(r)
	if id != "" {
		if err := portal.End(context.WithoutCancel(r.Context()), id); err != nil {
			logger.Warn("failed to end expired session",
				slog.String("session", id),
				slog.String("error", err.Error()),
			)
		}
	}
	auth.ClearCookie(w)
}

// expirePage ends the session and sends the browser to the login page with
// the "session expired" notice.
func expirePage(w http.ResponseWriter, r *http.Request, portal *service.Portal, logger *slog.Logger) {
	endSession(w, r, portal, logger)
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
}

// apiError writes err as JSON. An expired session also loses its cookie.
func apiError(w http.ResponseWriter, r *http.Request, portal *service.Portal, logger *slog.Logger, err error) {
	if errors.Is(err, apperror.ErrSessionExpired) {
		endSession(w, r, portal, logger)
	}
	writeError(w, err)
}

// DenyPage is the RequireSession fallback for pages.
func DenyPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// DenyAPI is the RequireSession fallback for /api routes.
func DenyAPI(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperror.SessionExpired(""))
}
