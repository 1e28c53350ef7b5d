package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/backendtest"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/repository"
	"github.com/sakif/xeenux-portal/internal/repository/sqlite"
	"github.com/sakif/xeenux-portal/internal/session"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// countingRepo counts session rows created through it.
type countingRepo struct {
	repository.SessionRepository
	creates atomic.Int32
}

func (c *countingRepo) Create(ctx context.Context, s *model.Session) error {
	c.creates.Add(1)
	return c.SessionRepository.Create(ctx, s)
}

type fixture struct {
	backend  *backendtest.Backend
	repo     *countingRepo
	sessions *session.Manager
	portal   *Portal
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := &countingRepo{SessionRepository: db}

	b := backendtest.New(t)
	b.AddUser("ada@example.com", "secret1", model.User{UserID: 42, Name: "Ada", Role: "user"})

	base, err := client.New(client.Config{BaseURL: b.URL, Logger: logger})
	require.NoError(t, err)

	sessions := session.NewManager(repo, logger)
	portal := NewPortal(base, sessions, 4, logger)
	return &fixture{
		backend:  b,
		repo:     repo,
		sessions: sessions,
		portal:   portal,
		auth:     NewAuthService(portal, sessions, logger),
	}
}

func (f *fixture) login(t *testing.T) *AuthResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), model.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	return res
}

// =========================================================================
// LOGIN / REGISTER
// =========================================================================

func TestLogin_OpensSession(t *testing.T) {
	f := newFixture(t)
	res := f.login(t)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, int64(42), res.User.UserID)

	s, err := f.portal.Session(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", s.User.Name)
	assert.NotEmpty(t, s.AccessToken())
	assert.NotEmpty(t, s.Token.RefreshToken)
}

func TestLogin_WrongPasswordLeavesNoSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Login(context.Background(), model.LoginRequest{Email: "ada@example.com", Password: "nope"})
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
	assert.Equal(t, "Invalid email or password", apperror.UserMessage(err))
	assert.Zero(t, f.repo.creates.Load())
}

func TestLogin_InvalidEmailNeverReachesBackend(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Login(context.Background(), model.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Zero(t, f.backend.Calls("POST /auth/login"))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Register(context.Background(), validate.Registration{
		Name:          "Grace",
		Email:         "grace@example.com",
		CountryCode:   "+1",
		PhoneNumber:   "555-0100",
		Password:      "secret1",
		WalletAddress: "0xgrace",
		ReferrerID:    42,
		Position:      model.PositionRight,
	})
	require.NoError(t, err)

	assert.Equal(t, "+15550100", res.User.Phone)
	assert.Equal(t, int64(42), res.User.ReferrerID)
	assert.Equal(t, model.PositionRight, res.User.Position)
	assert.Equal(t, int32(1), f.repo.creates.Load())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), validate.Registration{
		Name:          "Ada again",
		Email:         "ada@example.com",
		PhoneNumber:   "1",
		Password:      "secret1",
		WalletAddress: "0xada",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "Email already registered", apperror.UserMessage(err))
}

// =========================================================================
// LOGOUT / PASSWORD RESET
// =========================================================================

func TestLogout_ForgetsSessionAndViews(t *testing.T) {
	f := newFixture(t)
	res := f.login(t)
	views := f.portal.Views(res.SessionID)

	require.NoError(t, f.auth.Logout(context.Background(), res.SessionID))

	_, err := f.portal.Session(context.Background(), res.SessionID)
	assert.True(t, errors.Is(err, apperror.ErrSessionExpired))
	assert.NotSame(t, views, f.portal.Views(res.SessionID), "views are rebuilt after logout")
}

func TestSweep_DropsViewsOfExpiredSessions(t *testing.T) {
	f := newFixture(t)
	old := f.login(t)
	oldViews := f.portal.Views(old.SessionID)
	time.Sleep(5 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	live := f.login(t)
	liveViews := f.portal.Views(live.SessionID)

	_, err := f.sessions.Expire(context.Background(), cutoff)
	require.NoError(t, err)

	f.portal.mu.Lock()
	_, kept := f.portal.views[old.SessionID]
	f.portal.mu.Unlock()
	assert.False(t, kept, "swept session's views are released")
	assert.NotSame(t, oldViews, f.portal.Views(old.SessionID))
	assert.Same(t, liveViews, f.portal.Views(live.SessionID))
}

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.auth.ForgotPassword(context.Background(), validate.ForgotPassword{Email: " ada@example.com "}))
	assert.JSONEq(t, `{"email":"ada@example.com"}`, string(f.backend.Body("POST /auth/forgot-password")))

	err := f.auth.ForgotPassword(context.Background(), validate.ForgotPassword{Email: "ada"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := validate.ResetPassword{Password: "newpass", ConfirmPassword: "newpass"}
	require.NoError(t, f.auth.ResetPassword(ctx, "reset-ok", ok))

	err := f.auth.ResetPassword(ctx, "stale", ok)
	assert.Equal(t, "Invalid or expired reset token", apperror.UserMessage(err))

	calls := f.backend.Calls("POST /auth/reset-password/reset-ok")
	err = f.auth.ResetPassword(ctx, "reset-ok", validate.ResetPassword{Password: "newpass", ConfirmPassword: "other"})
	assert.Equal(t, "Passwords do not match", apperror.UserMessage(err))
	assert.Equal(t, calls, f.backend.Calls("POST /auth/reset-password/reset-ok"), "mismatch is caught before any call")
}
