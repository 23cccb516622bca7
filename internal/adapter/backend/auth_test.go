package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/machintel/machintel-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Login(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ana@example.com", in["email"])
		assert.Equal(t, "s3cretpass", in["password"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"access": "a", "refresh": "r", "id": 12, "username": "ana", "email": "ana@example.com",
		})
	})

	pair, err := c.Login(context.Background(), "ana@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, TokenPair{
		Access:  "a",
		Refresh: "r",
		User:    domain.User{ID: 12, Username: "ana", Email: "ana@example.com"},
	}, pair)
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{
			"detail": "Invalid credentials, please try again.",
		})
	})

	_, err := c.Login(context.Background(), "ana@example.com", "wrong")
	status, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestClient_Register(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/register/", r.URL.Path)
		var in RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Ana", in.FirstName)
		writeJSON(t, w, http.StatusCreated, map[string]any{"id": 3, "username": in.Username, "email": in.Email})
	})

	user, err := c.Register(context.Background(), RegisterRequest{
		Username: "ana", Email: "ana@example.com", FirstName: "Ana", LastName: "Lima", Password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: 3, Username: "ana", Email: "ana@example.com"}, user)
}

func TestClient_LoginAsGuest(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/guest-sessions/", r.URL.Path)
		writeJSON(t, w, http.StatusCreated, map[string]string{
			"session_id": "g-1", "created_at": "2024-05-01T10:00:00Z", "expires_at": "2024-05-02T10:00:00Z",
		})
	})

	gs, err := c.LoginAsGuest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "g-1", gs.SessionID)
	assert.Equal(t, 24*time.Hour, gs.ExpiresAt.Sub(gs.CreatedAt))
}

func TestClient_Refresh_KeepsRefreshToken(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"access": "new-access"})
	})

	pair, err := c.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", pair.Access)
	assert.Equal(t, "old-refresh", pair.Refresh)
}

func TestClient_Logout(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/logout/", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Logout(context.Background(), userCreds, "r"))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 12,
		"exp":     exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("not-a-jwt")
	assert.False(t, ok)
}

func TestNeedsRefresh(t *testing.T) {
	exp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := signedToken(t, exp)

	assert.False(t, NeedsRefresh(tok, exp.Add(-time.Minute), 30*time.Second))
	assert.True(t, NeedsRefresh(tok, exp.Add(-10*time.Second), 30*time.Second))
	assert.True(t, NeedsRefresh(tok, exp.Add(time.Hour), 30*time.Second))
	assert.False(t, NeedsRefresh("opaque", exp, 30*time.Second))
}
