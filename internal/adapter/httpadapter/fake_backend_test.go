package httpadapter_test

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/domain"
)

// fakeBackend is an in-memory analytics backend. Function fields override
// the default behavior of individual calls.
type fakeBackend struct {
	mu        sync.Mutex
	lastCreds domain.Credentials
	uploaded  []string
	loggedOut []string

	datasets    map[int64]domain.Dataset
	stats       map[int64]domain.DatasetStats
	predictions []domain.Prediction
	insights    []domain.Insight

	loginFn   func(email, password string) (backend.TokenPair, error)
	guestFn   func() (backend.GuestSession, error)
	refreshFn func(refresh string) (backend.TokenPair, error)
	logoutErr error
	statsErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		datasets: map[int64]domain.Dataset{},
		stats:    map[int64]domain.DatasetStats{},
	}
}

func notFound() error {
	return &backend.APIError{Status: http.StatusNotFound, Detail: "Not found."}
}

func (f *fakeBackend) record(creds domain.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreds = creds
}

func (f *fakeBackend) creds() domain.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCreds
}

func (f *fakeBackend) Register(_ context.Context, in backend.RegisterRequest) (domain.User, error) {
	if in.Username == "taken" {
		return domain.User{}, &backend.APIError{
			Status: http.StatusBadRequest,
			Detail: "username: A user with that username already exists.",
		}
	}
	return domain.User{ID: 7, Username: in.Username, Email: in.Email}, nil
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (backend.TokenPair, error) {
	if f.loginFn != nil {
		return f.loginFn(email, password)
	}
	return backend.TokenPair{
		Access:  "access-token",
		Refresh: "refresh-token",
		User:    domain.User{ID: 1, Username: "ana", Email: email},
	}, nil
}

func (f *fakeBackend) LoginAsGuest(context.Context) (backend.GuestSession, error) {
	if f.guestFn != nil {
		return f.guestFn()
	}
	return backend.GuestSession{SessionID: "guest-123"}, nil
}

func (f *fakeBackend) Refresh(_ context.Context, refresh string) (backend.TokenPair, error) {
	if f.refreshFn != nil {
		return f.refreshFn(refresh)
	}
	return backend.TokenPair{Access: "refreshed", Refresh: refresh}, nil
}

func (f *fakeBackend) Logout(_ context.Context, creds domain.Credentials, refresh string) error {
	f.record(creds)
	f.mu.Lock()
	f.loggedOut = append(f.loggedOut, refresh)
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeBackend) ListDatasets(_ context.Context, creds domain.Credentials) ([]domain.Dataset, error) {
	f.record(creds)
	var out []domain.Dataset
	for _, ds := range f.datasets {
		out = append(out, ds)
	}
	return out, nil
}

func (f *fakeBackend) GetDataset(_ context.Context, creds domain.Credentials, id int64) (domain.Dataset, error) {
	f.record(creds)
	ds, ok := f.datasets[id]
	if !ok {
		return domain.Dataset{}, notFound()
	}
	return ds, nil
}

func (f *fakeBackend) DatasetStats(_ context.Context, _ domain.Credentials, id int64) (domain.DatasetStats, error) {
	if f.statsErr != nil {
		return domain.DatasetStats{}, f.statsErr
	}
	return f.stats[id], nil
}

func (f *fakeBackend) DeleteDataset(_ context.Context, creds domain.Credentials, id int64) error {
	f.record(creds)
	if _, ok := f.datasets[id]; !ok {
		return notFound()
	}
	delete(f.datasets, id)
	return nil
}

func (f *fakeBackend) UploadDataset(_ context.Context, creds domain.Credentials, filename string, r io.Reader) (domain.Dataset, error) {
	f.record(creds)
	if _, err := io.ReadAll(r); err != nil {
		return domain.Dataset{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, filename)
	return domain.Dataset{ID: 99, File: "uploads/" + filename, Status: domain.StatusPending}, nil
}

func (f *fakeBackend) ListPredictions(_ context.Context, creds domain.Credentials) ([]domain.Prediction, error) {
	f.record(creds)
	return f.predictions, nil
}

func (f *fakeBackend) ListPredictionsByDataset(_ context.Context, creds domain.Credentials, datasetID int64) ([]domain.Prediction, error) {
	f.record(creds)
	var out []domain.Prediction
	for _, p := range f.predictions {
		if p.Dataset == datasetID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetPrediction(_ context.Context, creds domain.Credentials, id int64) (domain.Prediction, error) {
	f.record(creds)
	for _, p := range f.predictions {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Prediction{}, notFound()
}

func (f *fakeBackend) ListInsights(_ context.Context, creds domain.Credentials) ([]domain.Insight, error) {
	f.record(creds)
	return f.insights, nil
}

func (f *fakeBackend) ListInsightsByDataset(_ context.Context, creds domain.Credentials, datasetID int64) ([]domain.Insight, error) {
	f.record(creds)
	var out []domain.Insight
	for _, in := range f.insights {
		if in.Dataset == datasetID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetInsight(_ context.Context, creds domain.Credentials, id int64) (domain.Insight, error) {
	f.record(creds)
	for _, in := range f.insights {
		if in.ID == id {
			return in, nil
		}
	}
	return domain.Insight{}, notFound()
}

func (f *fakeBackend) GenerateInsights(_ context.Context, creds domain.Credentials, _ []int64) (backend.GenerateResult, error) {
	f.record(creds)
	return backend.GenerateResult{TaskID: "task-1", Status: "PENDING"}, nil
}

func (f *fakeBackend) InsightTaskStatus(_ context.Context, creds domain.Credentials, taskID string) (backend.TaskStatus, error) {
	f.record(creds)
	return backend.TaskStatus{TaskID: taskID, Status: "SUCCESS", Insights: f.insights}, nil
}
