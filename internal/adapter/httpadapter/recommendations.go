package httpadapter

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/machintel/machintel-service/internal/domain"
)

// pollingIntervalSeconds tells clients how often to poll a generation task.
const pollingIntervalSeconds = 5

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	creds := sess.Credentials()

	var (
		insights []domain.Insight
		err      error
	)
	if datasetID := queryInt(r, "dataset"); datasetID > 0 {
		insights, err = s.backend.ListInsightsByDataset(r.Context(), creds, datasetID)
	} else {
		insights, err = s.backend.ListInsights(r.Context(), creds)
	}
	if err != nil {
		s.writeBackendError(w, r, "list_insights", err)
		return
	}
	if insights == nil {
		insights = []domain.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": insights})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid recommendation id")
		return
	}
	sess, _ := sessionFrom(r.Context())
	insight, err := s.backend.GetInsight(r.Context(), sess.Credentials(), id)
	if err != nil {
		s.writeBackendError(w, r, "get_insight", err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

// handleGenerateRecommendations starts asynchronous generation and tells
// the client where and how often to poll.
func (s *Server) handleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	var form domain.InsightRequestForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := domain.ValidateForm(form); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	sess, _ := sessionFrom(r.Context())
	res, err := s.backend.GenerateInsights(r.Context(), sess.Credentials(), form.DatasetIDs)
	if err != nil {
		s.writeBackendError(w, r, "generate_insights", err)
		return
	}
	s.logger.Info("recommendation generation requested", "datasets", len(form.DatasetIDs), "task_id", res.TaskID)

	body := map[string]any{
		"status":              res.Status,
		"message":             res.Message,
		"retry_after_seconds": pollingIntervalSeconds,
	}
	if res.TaskID != "" {
		body["task_id"] = res.TaskID
		body["status_url"] = "/recommendations/tasks/" + url.PathEscape(res.TaskID)
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (s *Server) handleRecommendationTask(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	status, err := s.backend.InsightTaskStatus(r.Context(), sess.Credentials(), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeBackendError(w, r, "insight_task_status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
