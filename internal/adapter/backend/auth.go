package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/machintel/machintel-service/internal/domain"
)

// RegisterRequest is the account registration payload.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// TokenPair is the result of a credential login.
type TokenPair struct {
	Access  string
	Refresh string
	User    domain.User
}

// GuestSession is a time-boxed anonymous identity issued by the backend.
type GuestSession struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (domain.User, error) {
	var user domain.User
	err := c.doJSON(ctx, "register", http.MethodPost, "/users/register/", domain.Credentials{}, in, &user)
	return user, err
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	in := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/token/", domain.Credentials{}, in, &resp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		Access:  resp.Access,
		Refresh: resp.Refresh,
		User:    domain.User{ID: resp.ID, Username: resp.Username, Email: resp.Email},
	}, nil
}

// LoginAsGuest opens a guest session.
func (c *Client) LoginAsGuest(ctx context.Context) (GuestSession, error) {
	var gs GuestSession
	err := c.doJSON(ctx, "login_guest", http.MethodPost, "/users/guest-sessions/", domain.Credentials{}, nil, &gs)
	return gs, err
}

// Refresh trades a refresh token for a new access token. The refresh token
// is rotated when the backend returns a new one.
func (c *Client) Refresh(ctx context.Context, refresh string) (TokenPair, error) {
	in := map[string]string{"refresh": refresh}
	var resp tokenResponse
	if err := c.doJSON(ctx, "refresh", http.MethodPost, "/auth/token/refresh/", domain.Credentials{}, in, &resp); err != nil {
		return TokenPair{}, err
	}
	pair := TokenPair{Access: resp.Access, Refresh: resp.Refresh}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	return pair, nil
}

// Logout blacklists the refresh token.
func (c *Client) Logout(ctx context.Context, creds domain.Credentials, refresh string) error {
	in := map[string]string{"refresh": refresh}
	return c.doJSON(ctx, "logout", http.MethodPost, "/auth/logout/", creds, in, nil)
}
