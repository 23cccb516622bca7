package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/machintel/machintel-service/internal/domain"
)

// GenerateResult acknowledges an insight generation request. Generation
// runs asynchronously on the backend.
type GenerateResult struct {
	TaskID  string `json:"task_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// TaskStatus is the progress of an insight generation task.
type TaskStatus struct {
	TaskID   string           `json:"task_id"`
	Status   string           `json:"status"`
	Insights []domain.Insight `json:"insights,omitempty"`
}

// ListInsights returns every insight visible to the caller.
func (c *Client) ListInsights(ctx context.Context, creds domain.Credentials) ([]domain.Insight, error) {
	var out []domain.Insight
	err := c.doJSON(ctx, "list_insights", http.MethodGet, "/insights/", creds, nil, &out)
	return out, err
}

// ListInsightsByDataset returns the insights generated for one dataset.
func (c *Client) ListInsightsByDataset(ctx context.Context, creds domain.Credentials, datasetID int64) ([]domain.Insight, error) {
	var out []domain.Insight
	err := c.doJSON(ctx, "list_dataset_insights", http.MethodGet, fmt.Sprintf("/insights/dataset/%d/", datasetID), creds, nil, &out)
	return out, err
}

// GetInsight returns one insight.
func (c *Client) GetInsight(ctx context.Context, creds domain.Credentials, id int64) (domain.Insight, error) {
	var out domain.Insight
	err := c.doJSON(ctx, "get_insight", http.MethodGet, fmt.Sprintf("/insights/%d/", id), creds, nil, &out)
	return out, err
}

// GenerateInsights asks the backend to produce recommendations for the
// given datasets.
func (c *Client) GenerateInsights(ctx context.Context, creds domain.Credentials, datasetIDs []int64) (GenerateResult, error) {
	in := map[string][]int64{"dataset_ids": datasetIDs}
	var out GenerateResult
	err := c.doJSON(ctx, "generate_insights", http.MethodPost, "/insights/generate/", creds, in, &out)
	return out, err
}

// InsightTaskStatus polls an insight generation task.
func (c *Client) InsightTaskStatus(ctx context.Context, creds domain.Credentials, taskID string) (TaskStatus, error) {
	var out TaskStatus
	err := c.doJSON(ctx, "insight_task_status", http.MethodGet, "/insights/status/"+url.PathEscape(taskID)+"/", creds, nil, &out)
	return out, err
}
