package api

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/model"
)

type Auth struct{ d Doer }

// LoginResult is what login and register hand back. The token pair sits
// beside the data block in the envelope.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         model.User
}

// Token returns the pair as an oauth2.Token for the session store.
func (r LoginResult) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
	}
}

func (a *Auth) Register(ctx context.Context, req model.RegisterRequest) (LoginResult, error) {
	return a.tokenCall(ctx, "/auth/register", req)
}

func (a *Auth) Login(ctx context.Context, req model.LoginRequest) (LoginResult, error) {
	return a.tokenCall(ctx, "/auth/login", req)
}

func (a *Auth) tokenCall(ctx context.Context, path string, body any) (LoginResult, error) {
	env, err := a.d.Envelope(ctx, client.Request{Method: http.MethodPost, Path: path, Body: body, Public: true})
	if err != nil {
		return LoginResult{}, err
	}
	var data model.AuthUser
	if len(env.Data) > 0 {
		if err := decode(env.Data, &data, "POST "+path); err != nil {
			return LoginResult{}, err
		}
	}
	return LoginResult{AccessToken: env.Token, RefreshToken: env.RefreshToken, User: data.User}, nil
}

// RefreshToken exchanges a refresh token explicitly. The client does this on
// its own after a 401; the CLI exposes it for scripting.
func (a *Auth) RefreshToken(ctx context.Context, refreshToken string) (LoginResult, error) {
	return a.tokenCall(ctx, "/auth/refresh-token", map[string]string{"refreshToken": refreshToken})
}

func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	return a.d.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/forgot-password",
		Body:   map[string]string{"email": email},
		Public: true,
	}, nil)
}

func (a *Auth) ResetPassword(ctx context.Context, token, password string) error {
	return a.d.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/reset-password/" + url.PathEscape(token),
		Body:   map[string]string{"password": password},
		Public: true,
	}, nil)
}

func (a *Auth) UpdatePassword(ctx context.Context, req model.PasswordUpdate) error {
	return a.d.Do(ctx, client.Request{Method: http.MethodPatch, Path: "/auth/update-password", Body: req}, nil)
}
