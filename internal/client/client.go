// Package client is the authenticated HTTP client every backend call goes
// through.
//
// REQUEST LIFECYCLE:
//  1. attach Authorization: Bearer <token> from the Session (unless Public)
//  2. send; decode the {status, data} envelope
//  3. on 401, once per originating request: exchange the refresh token,
//     persist the new token, replay the request with it
//  4. if the refresh is rejected or the replay is rejected again, clear the
//     session and return apperror.ErrSessionExpired. A cancelled caller or
//     an unreachable backend gets its error back and the session stays.
//
// There are no other retries and nothing is cached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/session"
)

// Session is the token boundary the client reads from and rotates.
// *session.Handle implements it.
type Session interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context, stale string, exchange session.Exchanger) (string, error)
	Clear(ctx context.Context) error
}

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Config configures a Client. Only BaseURL is required.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    Session
	Logger     *slog.Logger
	UserAgent  string
	// Timeout bounds each round trip. Zero means no timeout.
	Timeout time.Duration
}

// Client sends requests to the backend.
type Client struct {
	baseURL   string
	http      *http.Client
	session   Session
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
}

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base URL %q is not absolute", cfg.BaseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      cfg.HTTPClient,
		session:   cfg.Session,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.userAgent == "" {
		c.userAgent = "xeenux-portal"
	}
	return c, nil
}

// WithSession returns a copy of c bound to s. The portal keeps one base
// client and derives one per browser session.
func (c *Client) WithSession(s Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Public requests carry no bearer token and never trigger a refresh.
	Public bool
}

// Do sends req and decodes the envelope's data block into out. out may be
// nil when the caller only cares about success.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	env, err := c.Envelope(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.Transport(req.Method+" "+req.Path+": decoding data", err)
	}
	return nil
}

// Envelope sends req and returns the raw envelope of a 2xx response. Use it
// when fields beside data are needed (login, refresh).
func (c *Client) Envelope(ctx context.Context, req Request) (*model.RawEnvelope, error) {
	requestID := xid.New().String()

	var token string
	if !req.Public && c.session != nil {
		var err error
		if token, err = c.session.Token(ctx); err != nil {
			return nil, err
		}
	}

	status, env, err := c.send(ctx, req, token, requestID)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !req.Public && c.session != nil {
		fresh, err := c.session.Refresh(ctx, token, c.exchange)
		if err != nil && !refreshRejected(ctx, err) {
			c.logger.Info("token refresh interrupted",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		if err != nil {
			c.logger.Warn("token refresh failed",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
			return nil, c.expire(ctx)
		}

		status, env, err = c.send(ctx, req, fresh, requestID)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.logger.Warn("request rejected after refresh",
				slog.String("request_id", requestID),
				slog.String("path", req.Path),
			)
			return nil, c.expire(ctx)
		}
	}

	if status < 200 || status >= 300 {
		return nil, apperror.FromStatus(status, env.ErrorText())
	}
	return env, nil
}

// refreshRejected reports whether a refresh error means the session is no
// longer usable. A caller that gave up, or a backend that could not be
// reached, leaves the stored tokens alone.
func refreshRejected(ctx context.Context, err error) bool {
	switch {
	case ctx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, apperror.ErrTransport):
		return false
	}
	return true
}

// expire clears the session after a failed refresh cycle.
func (c *Client) expire(ctx context.Context) error {
	// the caller's context may already be done; clearing must still happen
	if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("clearing session", slog.String("error", err.Error()))
	}
	return apperror.SessionExpired("")
}

// exchange trades a refresh token at POST /auth/refresh-token. The backend
// returns the new token beside the data block.
func (c *Client) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	req := Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh-token",
		Body:   map[string]string{"refreshToken": refreshToken},
		Public: true,
	}
	status, env, err := c.send(ctx, req, "", xid.New().String())
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apperror.FromStatus(status, env.ErrorText())
	}
	if env.Token == "" {
		return nil, errors.New("client: refresh response carried no token")
	}
	return &oauth2.Token{
		AccessToken:  env.Token,
		RefreshToken: env.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

// send performs one round trip. A non-nil error is always a transport error;
// HTTP failures are reported through status.
func (c *Client) send(ctx context.Context, req Request, token, requestID string) (int, *model.RawEnvelope, error) {
	op := req.Method + " " + req.Path

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("client: encoding %s body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("client: building %s: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, apperror.Transport(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, apperror.Transport(op, err)
	}

	c.logger.Debug("backend call",
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	env := &model.RawEnvelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return 0, nil, apperror.Transport(op+": decoding envelope", err)
		}
		// error pages from proxies are not JSON; keep the status
		env = &model.RawEnvelope{}
	}
	return resp.StatusCode, env, nil
}
