// Package backendtest runs an in-memory Xeenux backend for tests.
//
// It speaks the real wire contract: {status, data} envelopes, the token pair
// beside data on login and refresh, bearer auth with 401 on a stale token,
// the binary-tree node lookup and admin-only routes. Routes it does not model
// answer {"status":"success","data":null} and are counted, so a test can
// assert that a call went out without modelling its payload.
package backendtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sakif/xeenux-portal/internal/model"
)

// Backend is a running fake. Set ResetToken before issuing requests.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // by email
	access    map[string]int64    // access token → userId
	refresh   map[string]int64    // refresh token → userId
	nodes     map[int64]model.BinaryNode
	incomes   []model.Income
	failures  map[string]failure
	calls     map[string]int
	bodies    map[string][]byte
	nextUser  int64
	nextToken int
	noRefresh bool

	// ResetToken is the only token POST /auth/reset-password accepts.
	ResetToken string
}

type account struct {
	password string
	user     model.User
}

type failure struct {
	status  int
	message string
}

// New starts a Backend and stops it when the test ends.
func New(t testing.TB) *Backend {
	b := &Backend{
		accounts:   make(map[string]*account),
		access:     make(map[string]int64),
		refresh:    make(map[string]int64),
		nodes:      make(map[int64]model.BinaryNode),
		failures:   make(map[string]failure),
		calls:      make(map[string]int),
		bodies:     make(map[string][]byte),
		nextUser:   1000,
		ResetToken: "reset-ok",
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// AddUser registers an account the fake will accept at login.
func (b *Backend) AddUser(email, password string, u model.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u.Email = email
	b.accounts[email] = &account{password: password, user: u}
}

// AddNode makes userID resolvable through GET /binary/tree.
func (b *Backend) AddNode(n model.BinaryNode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes[n.UserID] = n
}

// AddIncome appends to the ledger served by GET /income.
func (b *Backend) AddIncome(in ...model.Income) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.incomes = append(b.incomes, in...)
}

// Fail makes "METHOD /path" answer status with message until cleared with
// status 0.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = failure{status: status, message: message}
}

// ExpireAccessTokens invalidates every issued access token, as if they all
// timed out. Refresh tokens stay valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]int64)
}

// DisableRefresh makes every refresh-token exchange fail with 401.
func (b *Backend) DisableRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noRefresh = true
}

// Calls returns how often "METHOD /path" was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Body returns the last request body sent to "METHOD /path".
func (b *Backend) Body(route string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[route]
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/auth/login", b.login)
	r.Post("/auth/register", b.register)
	r.Post("/auth/refresh-token", b.refreshToken)
	r.Post("/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"message": "Reset link sent"})
	})
	r.Post("/auth/reset-password/{token}", b.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(b.bearer)

		r.Get("/users/me", b.me)
		r.Get("/users/dashboard", b.dashboard)
		r.Get("/binary/tree", b.binaryTree)
		r.Get("/income", b.incomeList)

		r.Group(func(r chi.Router) {
			r.Use(b.adminOnly)
			r.HandleFunc("/admin/*", b.fallback)
		})

		r.NotFound(b.fallback)
		r.MethodNotAllowed(b.fallback)
	})
	return r
}

// ===== middleware =====

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.calls[route]++
		if len(body) > 0 {
			b.bodies[route] = body
		}
		f, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		id, ok := b.access[token]
		b.mu.Unlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, "Token expired")
			return
		}
		r.Header.Set("X-Test-User", strconv.FormatInt(id, 10))
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := b.userOf(r); !ok || !u.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) userOf(r *http.Request) (model.User, bool) {
	id, _ := strconv.ParseInt(r.Header.Get("X-Test-User"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if a.user.UserID == id {
			return a.user, true
		}
	}
	return model.User{}, false
}

// ===== auth =====

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[req.Email]
	b.mu.Unlock()
	if !ok || a.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.writeTokens(w, http.StatusOK, a.user)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	if _, taken := b.accounts[req.Email]; taken {
		b.mu.Unlock()
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	b.nextUser++
	u := model.User{
		UserID:        b.nextUser,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		WalletAddress: req.WalletAddress,
		ReferrerID:    req.ReferrerID,
		Position:      req.Position,
		Role:          "user",
	}
	b.accounts[req.Email] = &account{password: req.Password, user: u}
	b.mu.Unlock()

	b.writeTokens(w, http.StatusCreated, u)
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	id, ok := b.refresh[body.RefreshToken]
	disabled := b.noRefresh
	if ok && !disabled {
		delete(b.refresh, body.RefreshToken)
	}
	b.mu.Unlock()

	if !ok || disabled {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	b.writeTokens(w, http.StatusOK, model.User{UserID: id})
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	want := b.ResetToken
	b.mu.Unlock()
	if chi.URLParam(r, "token") != want {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (b *Backend) writeTokens(w http.ResponseWriter, status int, u model.User) {
	b.mu.Lock()
	b.nextToken++
	access := fmt.Sprintf("access-%d", b.nextToken)
	refresh := fmt.Sprintf("refresh-%d", b.nextToken)
	b.access[access] = u.UserID
	b.refresh[refresh] = u.UserID
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":       model.StatusSuccess,
		"token":        access,
		"refreshToken": refresh,
		"data":         model.AuthUser{User: u},
	})
}

// ===== users, binary, income =====

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	u, _ := b.userOf(r)
	writeData(w, http.StatusOK, model.Profile{User: u})
}

func (b *Backend) dashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := b.userOf(r)
	writeData(w, http.StatusOK, model.Dashboard{
		User:          u,
		Incomes:       model.Incomes{Total: decimal.NewFromInt(125)},
		ReferralLinks: model.ReferralLinks{Left: "https://xeenux.test/register?ref=" + strconv.FormatInt(u.UserID, 10) + "&position=0"},
	})
}

func (b *Backend) binaryTree(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || id == 0 {
		// own tree: resolve the caller
		u, _ := b.userOf(r)
		id = u.UserID
	}

	b.mu.Lock()
	n, ok := b.nodes[id]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found in binary tree")
		return
	}

	writeData(w, http.StatusOK, model.BinaryTreePayload{
		BinaryTree: &model.BinarySummary{UserID: n.UserID, Name: n.Name},
		BinaryNetwork: &model.BinaryNetwork{
			UserID:           n.UserID,
			Position:         n.Position,
			LeftChildID:      n.LeftChildID,
			RightChildID:     n.RightChildID,
			LeftVolume:       n.LeftVolume,
			RightVolume:      n.RightVolume,
			TotalLeftVolume:  n.TotalLeftVolume,
			TotalRightVolume: n.TotalRightVolume,
			LeftCount:        n.LeftCount,
			RightCount:       n.RightCount,
		},
	})
}

func (b *Backend) incomeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("type")
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	b.mu.Lock()
	var matched []model.Income
	for _, in := range b.incomes {
		if kind == "" || kind == string(model.IncomeAll) || string(in.Type) == kind {
			matched = append(matched, in)
		}
	}
	b.mu.Unlock()

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	writeData(w, http.StatusOK, model.IncomePage{
		Incomes: matched[start:end],
		Pagination: model.Pagination{
			Total:      len(matched),
			Page:       page,
			Limit:      limit,
			TotalPages: (len(matched) + limit - 1) / limit,
		},
	})
}

func (b *Backend) fallback(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, nil)
}

// ===== envelope =====

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.Envelope[any]{Status: model.StatusSuccess, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
