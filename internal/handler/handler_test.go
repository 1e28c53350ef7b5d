package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/backendtest"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/handler"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/repository/sqlite"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/session"
)

// =========================================================================
// FIXTURE
// =========================================================================

type env struct {
	backend *backendtest.Backend
	portal  *service.Portal
	auth    *service.AuthService
	tokens  *auth.TokenService
	pages   *handler.Renderer
	logger  *slog.Logger
}

// newEnv wires the handlers against a fake backend that knows two
// accounts: ada (user 42) and root (user 1, admin).
func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := backendtest.New(t)
	b.AddUser("ada@example.com", "secret1", model.User{UserID: 42, Name: "Ada", Role: "user", WalletAddress: "0xada"})
	b.AddUser("root@example.com", "secret1", model.User{UserID: 1, Name: "Root", Role: "admin"})

	base, err := client.New(client.Config{BaseURL: b.URL, Logger: logger})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("0123456789abcdef-test", time.Hour)
	require.NoError(t, err)

	pages, err := handler.NewRenderer(logger)
	require.NoError(t, err)

	sessions := session.NewManager(db, logger)
	portal := service.NewPortal(base, sessions, 2, logger)
	return &env{
		backend: b,
		portal:  portal,
		auth:    service.NewAuthService(portal, sessions, logger),
		tokens:  tokens,
		pages:   pages,
		logger:  logger,
	}
}

// login opens a portal session for email and returns its id.
func (e *env) login(t *testing.T, email string) string {
	t.Helper()
	res, err := e.auth.Login(context.Background(), model.LoginRequest{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.SessionID
}

// as returns r carrying session id, the way RequireSession leaves it.
func as(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithSessionID(r.Context(), id))
}

func form(method, target string, values url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// withSession mounts routes on a router that injects session id.
func withSession(id string, routes func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, as(req, id))
		})
	})
	routes(r)
	return r
}

func cookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
