package httpadapter

import (
	"net/http"
	"time"

	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/domain"
	"github.com/machintel/machintel-service/internal/session"
)

type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	Guest         bool         `json:"guest"`
	User          *domain.User `json:"user,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Redirect      string       `json:"redirect,omitempty"`
}

func viewOf(sess session.Session) sessionView {
	v := sessionView{Authenticated: true, Guest: sess.Guest()}
	if sess.Registered() {
		user := sess.User
		v.User = &user
	}
	if !sess.ExpiresAt.IsZero() {
		exp := sess.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form domain.LoginForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := domain.ValidateForm(form); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	pair, err := s.backend.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		s.writeBackendError(w, r, "login", err)
		return
	}

	sess := s.sessions.Put(session.Session{
		User:         pair.User,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresAt:    s.clock.Now().Add(s.sessionTTL),
	})
	s.setCookie(w, sess)
	s.logger.Info("user logged in", "user_id", pair.User.ID)

	v := viewOf(sess)
	v.Redirect = "/"
	writeJSON(w, http.StatusOK, v)
}

// handleGuestLogin opens a time-boxed guest session. The session ends at
// the earlier of the backend's expiry and the configured guest TTL.
func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	gs, err := s.backend.LoginAsGuest(r.Context())
	if err != nil {
		s.writeBackendError(w, r, "login_guest", err)
		return
	}

	expires := s.clock.Now().Add(s.guestSessionTTL)
	if !gs.ExpiresAt.IsZero() && gs.ExpiresAt.Before(expires) {
		expires = gs.ExpiresAt
	}
	sess := s.sessions.Put(session.Session{
		GuestSessionID: gs.SessionID,
		ExpiresAt:      expires,
	})
	s.setCookie(w, sess)
	s.logger.Info("guest session started", "expires_at", expires)

	v := viewOf(sess)
	v.Redirect = "/"
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form domain.RegisterForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := domain.ValidateForm(form); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	user, err := s.backend.Register(r.Context(), backend.RegisterRequest{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
	})
	if err != nil {
		s.writeBackendError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":     user,
		"redirect": "/login",
	})
}

// handleLogout always ends the local session, even when the backend could
// not blacklist the refresh token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := sessionFrom(r.Context()); ok {
		if sess.Registered() && sess.RefreshToken != "" {
			if err := s.backend.Logout(r.Context(), sess.Credentials(), sess.RefreshToken); err != nil {
				s.logger.Warn("backend logout failed", "user_id", sess.User.ID, "error", err)
			}
		}
		s.sessions.Delete(sess.ID)
	}
	s.clearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, sessionView{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}
