// Package session keeps the signed-in state of browser clients: the
// account or guest identity, backend tokens and expiry.
//
// The auth flow is the only writer (Put, Delete); page handlers only read
// (Get). Entries live in a bounded LRU and expire at ExpiresAt according to
// the store's clock.
package session

import (
	"errors"
	"time"

	"github.com/machintel/machintel-service/internal/domain"
)

var (
	// ErrNotFound is returned for unknown or evicted session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session has outlived its ExpiresAt.
	ErrExpired = errors.New("session expired")
)

// Session is the server-side state behind a session cookie.
type Session struct {
	ID             string
	User           domain.User
	AccessToken    string
	RefreshToken   string
	GuestSessionID string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Registered reports whether the session belongs to a registered account.
func (s Session) Registered() bool {
	return s.AccessToken != ""
}

// Guest reports whether the session is a time-boxed guest identity.
func (s Session) Guest() bool {
	return !s.Registered() && s.GuestSessionID != ""
}

// Kind returns "registered" or "guest".
func (s Session) Kind() string {
	if s.Registered() {
		return "registered"
	}
	return "guest"
}

// Credentials returns what the backend client needs to authenticate.
func (s Session) Credentials() domain.Credentials {
	if s.Registered() {
		return domain.Credentials{AccessToken: s.AccessToken}
	}
	return domain.Credentials{GuestSessionID: s.GuestSessionID}
}
