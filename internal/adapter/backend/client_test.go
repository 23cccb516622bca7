package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/machintel/machintel-service/internal/domain"
	"github.com/machintel/machintel-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var (
	userCreds  = domain.Credentials{AccessToken: "access-1"}
	guestCreds = domain.Credentials{GuestSessionID: "guest-1"}
)

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := observability.NewMetricsForTesting()
	c := NewClient(srv.URL+"/api/", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), m)
	return c, m
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_BearerHeader(t *testing.T) {
	c, m := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datasets/my/", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get(GuestSessionHeader))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 3, "file": "uploads/ai4i.csv", "uploaded_at": "2024-05-01T10:00:00Z", "status": "completed"},
		})
	})

	got, err := c.ListDatasets(context.Background(), userCreds)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, "ai4i.csv", got[0].Name())
	assert.Equal(t, domain.StatusCompleted, got[0].Status)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendRequests.WithLabelValues("list_datasets", "success")), 0)
}

func TestClient_GuestHeader(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "guest-1", r.Header.Get(GuestSessionHeader))
		writeJSON(t, w, http.StatusOK, []any{})
	})

	got, err := c.ListPredictions(context.Background(), guestCreds)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_APIErrorDetail(t *testing.T) {
	c, m := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})

	_, err := c.GetDataset(context.Background(), userCreds, 42)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not found.", apiErr.Detail)
	assert.Equal(t, "backend API error: status 404: Not found.", err.Error())

	status, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, status)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendRequests.WithLabelValues("get_dataset", "client_error")), 0)
}

func TestClient_ServerErrorPlainBody(t *testing.T) {
	c, m := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	err := c.DeleteDataset(context.Background(), userCreds, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502: upstream down")
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendRequests.WithLabelValues("delete_dataset", "server_error")), 0)
}

func TestClient_TransportError(t *testing.T) {
	m := observability.NewMetricsForTesting()
	c := NewClient("http://127.0.0.1:1", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	_, err := c.ListInsights(context.Background(), userCreds)
	require.Error(t, err)
	_, ok := StatusCode(err)
	assert.False(t, ok)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendRequests.WithLabelValues("list_insights", "transport_error")), 0)
}

func TestClient_DecodeError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := c.GetPrediction(context.Background(), userCreds, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get_prediction: decode response")
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{"error", `{"error":"Dataset is still processing"}`, "Dataset is still processing"},
		{"field lists", `{"username":["A user with that username already exists."],"email":["Enter a valid email address."]}`,
			"email: Enter a valid email address.; username: A user with that username already exists."},
		{"not json", `<html>oops</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorDetail([]byte(tt.body)))
		})
	}
}

func TestClient_UploadDataset(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/datasets/upload/", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get(headerContentType), "multipart/form-data"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "machines.csv", hdr.Filename)
		assert.Equal(t, "Product ID,Type\nM14860,M\n", string(body))

		writeJSON(t, w, http.StatusCreated, map[string]any{
			"id": 9, "file": "uploads/machines.csv", "uploaded_at": "2024-05-01T10:00:00Z", "status": "pending",
		})
	})

	ds, err := c.UploadDataset(context.Background(), guestCreds, "machines.csv", strings.NewReader("Product ID,Type\nM14860,M\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), ds.ID)
	assert.Equal(t, domain.StatusPending, ds.Status)
}

func TestClient_DatasetStats(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datasets/my/5/stats/", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"type_counts": {"H": 2, "L": 1},
			"temp_by_product_type": [{"product_id": "H1", "type": "H", "air_temp_sum": "601.2", "process_temp_sum": 621.0}]
		}`))
	})

	stats, err := c.DatasetStats(context.Background(), userCreds, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TypeCounts["H"])
	require.Len(t, stats.TempByProductType, 1)
	assert.InDelta(t, 601.2, stats.TempByProductType[0].AirTempSum.Value, 1e-9)
	assert.True(t, stats.TempByProductType[0].ProcessTempSum.Valid)
}

func TestClient_ListPredictionsByDataset(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predictions/", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("dataset"))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 1, "dataset": 7, "product_id": "L47181", "prediction": "Failure", "confidence": 0.91,
				"features": map[string]any{"Torque [Nm]": 61.2}},
		})
	})

	preds, err := c.ListPredictionsByDataset(context.Background(), userCreds, 7)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.True(t, preds[0].Failed())
	assert.Equal(t, "L47181", preds[0].ProductID)
}

func TestClient_Insights(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/insights/generate/":
			var in map[string][]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, []int64{1, 2}, in["dataset_ids"])
			writeJSON(t, w, http.StatusAccepted, map[string]string{"task_id": "abc", "status": "PENDING"})
		case r.URL.Path == "/api/insights/status/abc/":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"task_id": "abc", "status": "SUCCESS",
				"insights": []map[string]any{{"insight_id": 4, "dataset": 1, "recommendation": "Replace tool"}},
			})
		case r.URL.Path == "/api/insights/dataset/1/":
			writeJSON(t, w, http.StatusOK, []map[string]any{{"insight_id": 4, "dataset": 1, "recommendation": "Replace tool"}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	res, err := c.GenerateInsights(ctx, userCreds, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.TaskID)

	status, err := c.InsightTaskStatus(ctx, userCreds, res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", status.Status)
	require.Len(t, status.Insights, 1)

	list, err := c.ListInsightsByDataset(ctx, userCreds, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(4), list[0].ID)
	assert.Equal(t, "Replace tool", list[0].Recommendation)
}
