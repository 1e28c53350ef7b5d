// Package session is the single boundary through which the backend token
// pair is read, rotated on refresh and cleared on forced logout.
//
// A Handle binds one session id to a SessionRepository. Refreshes on a Handle
// are serialised: when sibling requests all hit 401 with the same stale
// token, the first one exchanges the refresh token and the rest pick up the
// rotated access token without calling the backend again.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/repository"
)

// Exchanger trades a refresh token for a fresh token pair.
type Exchanger func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// ErrNoRefreshToken is returned by Refresh when the session has nothing to
// exchange.
var ErrNoRefreshToken = errors.New("session: no refresh token")

// Handle is the token boundary for one session id.
type Handle struct {
	repo   repository.SessionRepository
	id     string
	logger *slog.Logger

	mu sync.Mutex
}

// NewHandle binds id to repo. Prefer Manager.Handle in servers so that every
// request for the same session shares one Handle.
func NewHandle(repo repository.SessionRepository, id string, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{repo: repo, id: id, logger: logger}
}

// ID returns the session id.
func (h *Handle) ID() string { return h.id }

// Token returns the current access token, or "" when the session does not
// exist or holds no token. An unauthenticated request then gets a 401 and
// goes through the usual refresh-or-expire path.
func (h *Handle) Token(ctx context.Context) (string, error) {
	s, err := h.repo.Get(ctx, h.id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("session: reading token: %w", err)
	}
	return s.AccessToken(), nil
}

// Refresh rotates the access token. stale is the token the caller's request
// was rejected with; if the stored token already differs, another caller has
// refreshed in the meantime and the stored token is returned as is.
func (h *Handle) Refresh(ctx context.Context, stale string, exchange Exchanger) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.repo.Get(ctx, h.id)
	if err != nil {
		return "", fmt.Errorf("session: loading for refresh: %w", err)
	}

	if current := s.AccessToken(); current != "" && current != stale {
		h.logger.Debug("token already rotated", slog.String("session", h.id))
		return current, nil
	}

	if s.Token == nil || s.Token.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	tok, err := exchange(ctx, s.Token.RefreshToken)
	if err != nil {
		return "", err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = s.Token.RefreshToken
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = ExpiryOf(tok.AccessToken)
	}

	s.Token = tok
	if err := h.repo.Save(ctx, s); err != nil {
		return "", fmt.Errorf("session: saving refreshed token: %w", err)
	}

	h.logger.Info("access token refreshed", slog.String("session", h.id))
	return tok.AccessToken, nil
}

// Store persists the token pair and user after a successful login, creating
// the session row if needed.
func (h *Handle) Store(ctx context.Context, tok *oauth2.Token, user model.User) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tok != nil && tok.Expiry.IsZero() {
		tok.Expiry = ExpiryOf(tok.AccessToken)
	}

	s, err := h.repo.Get(ctx, h.id)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return h.repo.Create(ctx, &model.Session{ID: h.id, Token: tok, User: user})
	case err != nil:
		return fmt.Errorf("session: loading for store: %w", err)
	}

	s.Token = tok
	s.User = user
	return h.repo.Save(ctx, s)
}

// Clear drops the session entirely: token, refresh token and user.
func (h *Handle) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.repo.Delete(ctx, h.id); err != nil {
		return fmt.Errorf("session: clearing: %w", err)
	}
	h.logger.Info("session cleared", slog.String("session", h.id))
	return nil
}

// Snapshot returns a copy of the stored session. A missing session is
// reported as apperror.ErrSessionExpired.
func (h *Handle) Snapshot(ctx context.Context) (*model.Session, error) {
	s, err := h.repo.Get(ctx, h.id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.SessionExpired("")
		}
		return nil, err
	}
	return s, nil
}

// ExpiryOf reads the exp claim of a backend access token without verifying
// it. The backend owns the signing key; the portal only uses the expiry for
// display and sweeping. Zero means unknown.
func ExpiryOf(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Manager hands out one Handle per session id so concurrent requests from
// the same browser share a refresh lock.
type Manager struct {
	repo   repository.SessionRepository
	logger *slog.Logger

	mu       sync.Mutex
	handles  map[string]*Handle
	onExpire []func(ids []string)
}

func NewManager(repo repository.SessionRepository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, logger: logger, handles: make(map[string]*Handle)}
}

// Handle returns the shared Handle for id.
func (m *Manager) Handle(id string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[id]
	if !ok {
		h = NewHandle(m.repo, id, m.logger)
		m.handles[id] = h
	}
	return h
}

// Begin creates a fresh, empty session and returns its Handle.
func (m *Manager) Begin(ctx context.Context) (*Handle, error) {
	s := &model.Session{}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("session: creating: %w", err)
	}
	return m.Handle(s.ID), nil
}

// Forget clears the session and drops its Handle.
func (m *Manager) Forget(ctx context.Context, id string) error {
	err := m.Handle(id).Clear(ctx)

	m.mu.Lock()
	delete(m.handles, id)
	m.mu.Unlock()

	return err
}

// Sweep deletes sessions idle for longer than idle, every interval, until
// ctx is cancelled. Handles of swept sessions are dropped too.
func (m *Manager) Sweep(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Expire(ctx, time.Now().Add(-idle)); err != nil {
				m.logger.Error("sweeping sessions", slog.String("error", err.Error()))
			}
		}
	}
}

// Expire deletes sessions not used since before, drops their Handles and
// tells the OnExpire hooks. Handles of other sessions are left alone.
func (m *Manager) Expire(ctx context.Context, before time.Time) ([]string, error) {
	ids, err := m.repo.DeleteExpired(ctx, before)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	for _, id := range ids {
		delete(m.handles, id)
	}
	hooks := m.onExpire
	m.mu.Unlock()

	m.logger.Info("swept idle sessions", slog.Int("count", len(ids)))
	for _, fn := range hooks {
		fn(ids)
	}
	return ids, nil
}

// OnExpire registers fn to run with the ids of every swept batch.
func (m *Manager) OnExpire(fn func(ids []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = append(m.onExpire, fn)
}
