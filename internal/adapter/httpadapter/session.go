package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/session"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "machintel_session"

// refreshLeeway is how close to expiry an access token is refreshed.
const refreshLeeway = 30 * time.Second

type sessionKey struct{}

func withSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom returns the session attached by loadSession.
func sessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

// loadSession attaches the caller's session to the request context when the
// cookie names a live session. Stale cookies are cleared.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.sessions.Get(c.Value)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				s.logger.Debug("session expired", "session_id", c.Value)
			}
			s.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		sess, err = s.refreshIfNeeded(r.Context(), sess)
		if err != nil {
			s.logger.Warn("token refresh failed", "error", err)
			s.sessions.Delete(sess.ID)
			s.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

// refreshIfNeeded trades the refresh token for a new access token when the
// current one is about to expire. Concurrent requests on one session share a
// single refresh call, so a rotated refresh token is never replayed.
func (s *Server) refreshIfNeeded(ctx context.Context, sess session.Session) (session.Session, error) {
	if !sess.Registered() || sess.RefreshToken == "" {
		return sess, nil
	}
	if !backend.NeedsRefresh(sess.AccessToken, s.clock.Now(), refreshLeeway) {
		return sess, nil
	}

	v, err, _ := s.refreshes.Do(sess.ID, func() (any, error) {
		current, err := s.sessions.Get(sess.ID)
		if err != nil {
			return nil, err
		}
		if !backend.NeedsRefresh(current.AccessToken, s.clock.Now(), refreshLeeway) {
			return current, nil
		}
		pair, err := s.backend.Refresh(context.WithoutCancel(ctx), current.RefreshToken)
		if err != nil {
			return nil, err
		}
		current.AccessToken = pair.Access
		current.RefreshToken = pair.Refresh
		return s.sessions.Put(current), nil
	})
	if err != nil {
		return sess, err
	}
	return v.(session.Session), nil
}

// requireSession rejects requests without a registered or guest session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFrom(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":    "authentication required",
				"redirect": "/login",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRegistered rejects guest sessions. It must run after
// requireSession.
func requireRegistered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFrom(r.Context())
		if !sess.Registered() {
			writeError(w, http.StatusForbidden, "This feature requires a registered account.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setCookie(w http.ResponseWriter, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
