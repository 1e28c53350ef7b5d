package model

import (
	"time"

	"golang.org/x/oauth2"
)

// Session is the persisted login state: the backend token pair and the user
// record returned at login. It is the only cross-request mutable state.
type Session struct {
	ID        string
	Token     *oauth2.Token
	User      User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessToken returns the bearer token, or "" when the session holds none.
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}
