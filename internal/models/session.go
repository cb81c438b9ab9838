package models

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthEvent names an identity provider change notification.
type AuthEvent string

const (
	EventInitialSession  AuthEvent = "INITIAL_SESSION"
	EventSignedIn        AuthEvent = "SIGNED_IN"
	EventSignedOut       AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed  AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated     AuthEvent = "USER_UPDATED"
	EventSessionExpired  AuthEvent = "SESSION_EXPIRED"
	EventPasswordRecover AuthEvent = "PASSWORD_RECOVERY"
)

// Identity is the user associated with a [Session].
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is a live authentication grant.
//
// Expiry and refresh metadata belong to the identity provider; everything else treats them as opaque.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Token converts the session into an [oauth2.Token] for bearer transports.
func (s *Session) Token() *oauth2.Token {
	if s == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}
}

// ExpiresWithin reports whether the session expires within d of now.
// Sessions without an expiry never expire.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}

// Same reports whether two sessions carry the same grant for the same user.
func (s *Session) Same(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.AccessToken == other.AccessToken && s.User.ID == other.User.ID
}

// Clone returns a copy so callers can't mutate store-owned state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
