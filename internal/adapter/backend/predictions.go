package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/machintel/machintel-service/internal/domain"
)

// ListPredictions returns every prediction visible to the caller.
func (c *Client) ListPredictions(ctx context.Context, creds domain.Credentials) ([]domain.Prediction, error) {
	var out []domain.Prediction
	err := c.doJSON(ctx, "list_predictions", http.MethodGet, "/predictions/", creds, nil, &out)
	return out, err
}

// ListPredictionsByDataset returns the predictions made for one dataset.
func (c *Client) ListPredictionsByDataset(ctx context.Context, creds domain.Credentials, datasetID int64) ([]domain.Prediction, error) {
	q := url.Values{"dataset": {strconv.FormatInt(datasetID, 10)}}
	var out []domain.Prediction
	err := c.doJSON(ctx, "list_dataset_predictions", http.MethodGet, "/predictions/?"+q.Encode(), creds, nil, &out)
	return out, err
}

// GetPrediction returns one prediction with its features.
func (c *Client) GetPrediction(ctx context.Context, creds domain.Credentials, id int64) (domain.Prediction, error) {
	var out domain.Prediction
	err := c.doJSON(ctx, "get_prediction", http.MethodGet, fmt.Sprintf("/predictions/%d/", id), creds, nil, &out)
	return out, err
}
