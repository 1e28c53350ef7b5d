package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/session"
	"github.com/sakif/xeenux-portal/internal/validate"
)

// AuthService runs the sign-in, sign-up and password reset flows.
//
// A portal session row is only created once the backend has accepted the
// credentials; failed logins leave nothing behind.
type AuthService struct {
	portal   *Portal
	sessions *session.Manager
	logger   *slog.Logger
}

func NewAuthService(portal *Portal, sessions *session.Manager, logger *slog.Logger) *AuthService {
	return &AuthService{portal: portal, sessions: sessions, logger: logger}
}

// AuthResult is a freshly signed-in session.
type AuthResult struct {
	SessionID string
	User      model.User
}

// Login checks the credentials against the backend and opens a session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	res, err := s.portal.Public().Auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, res, "login")
}

// Register signs a new user up and opens a session for them.
func (s *AuthService) Register(ctx context.Context, form validate.Registration) (*AuthResult, error) {
	req, err := form.Request()
	if err != nil {
		return nil, err
	}

	res, err := s.portal.Public().Auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, res, "register")
}

func (s *AuthService) open(ctx context.Context, res api.LoginResult, via string) (*AuthResult, error) {
	if res.AccessToken == "" {
		return nil, apperror.FromStatus(http.StatusBadGateway, "The server did not return a session token")
	}

	h, err := s.sessions.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	if err := h.Store(ctx, res.Token(), res.User); err != nil {
		return nil, fmt.Errorf("service/auth: storing session: %w", err)
	}

	s.logger.Info("user signed in",
		slog.String("via", via),
		slog.String("session", h.ID()),
		slog.Int64("userId", res.User.UserID),
	)
	return &AuthResult{SessionID: h.ID(), User: res.User}, nil
}

// Logout ends session id. The backend keeps no server-side session to
// revoke, so dropping the token pair is all there is to do.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if err := s.portal.End(ctx, id); err != nil {
		return fmt.Errorf("service/auth: logout: %w", err)
	}
	s.logger.Info("user signed out", slog.String("session", id))
	return nil
}

// ForgotPassword asks the backend to mail a reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, form validate.ForgotPassword) error {
	if err := form.Check(); err != nil {
		return err
	}
	return s.portal.Public().Auth.ForgotPassword(ctx, form.Email)
}

// ResetPassword sets a new password with the token from a reset link.
func (s *AuthService) ResetPassword(ctx context.Context, token string, form validate.ResetPassword) error {
	if strings.TrimSpace(token) == "" {
		return apperror.ValidationFailed("token", "Reset link is invalid")
	}
	if err := form.Check(); err != nil {
		return err
	}
	return s.portal.Public().Auth.ResetPassword(ctx, token, form.Password)
}
