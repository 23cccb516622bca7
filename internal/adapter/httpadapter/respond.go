package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/domain"
)

// maxJSONBody bounds form payloads.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeFieldErrors(w http.ResponseWriter, errs domain.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": errs,
	})
}

// writeBackendError passes a backend failure through to the client. API
// errors keep their status and message; anything else is a bad gateway.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Detail
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		body := map[string]string{"error": msg}
		if apiErr.Status == http.StatusUnauthorized {
			body["redirect"] = "/login"
		}
		writeJSON(w, apiErr.Status, body)
		return
	}
	s.logger.Error("backend request failed", "operation", op, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusBadGateway, "analytics backend unavailable")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter. Missing
// or malformed values yield 0.
func queryInt(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
