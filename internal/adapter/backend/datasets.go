package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/machintel/machintel-service/internal/domain"
)

// ListDatasets returns the caller's uploads.
func (c *Client) ListDatasets(ctx context.Context, creds domain.Credentials) ([]domain.Dataset, error) {
	var out []domain.Dataset
	err := c.doJSON(ctx, "list_datasets", http.MethodGet, "/datasets/my/", creds, nil, &out)
	return out, err
}

// GetDataset returns one upload including its preview rows.
func (c *Client) GetDataset(ctx context.Context, creds domain.Credentials, id int64) (domain.Dataset, error) {
	var out domain.Dataset
	err := c.doJSON(ctx, "get_dataset", http.MethodGet, fmt.Sprintf("/datasets/my/%d/", id), creds, nil, &out)
	return out, err
}

// DatasetStats returns the backend aggregates for a dataset.
func (c *Client) DatasetStats(ctx context.Context, creds domain.Credentials, id int64) (domain.DatasetStats, error) {
	var out domain.DatasetStats
	err := c.doJSON(ctx, "dataset_stats", http.MethodGet, fmt.Sprintf("/datasets/my/%d/stats/", id), creds, nil, &out)
	return out, err
}

// DeleteDataset removes an upload.
func (c *Client) DeleteDataset(ctx context.Context, creds domain.Credentials, id int64) error {
	return c.doJSON(ctx, "delete_dataset", http.MethodDelete, fmt.Sprintf("/datasets/my/%d/", id), creds, nil, nil)
}

// UploadDataset sends a CSV file as the multipart field "file".
func (c *Client) UploadDataset(ctx context.Context, creds domain.Credentials, filename string, r io.Reader) (domain.Dataset, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("upload_dataset: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.Dataset{}, fmt.Errorf("upload_dataset: copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.Dataset{}, fmt.Errorf("upload_dataset: close form: %w", err)
	}

	var out domain.Dataset
	err = c.do(ctx, request{
		op:          "upload_dataset",
		method:      http.MethodPost,
		path:        "/datasets/upload/",
		creds:       creds,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	return out, err
}
