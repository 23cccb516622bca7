package httpadapter

import (
	"errors"
	"net/http"

	"github.com/machintel/machintel-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Chart data sources reported on the dataset page.
const (
	chartSourceBackend = "backend"
	chartSourcePreview = "preview"
)

type datasetPage struct {
	Dataset     domain.Dataset           `json:"dataset"`
	Name        string                   `json:"name"`
	Stats       domain.PreviewStats      `json:"stats"`
	StatsText   map[string]string        `json:"stats_text"`
	Charts      domain.ChartData         `json:"charts"`
	ChartSource string                   `json:"chart_source"`
	Summary     domain.PredictionSummary `json:"summary"`
	Predictions []domain.Prediction      `json:"predictions"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	datasets, err := s.backend.ListDatasets(r.Context(), sess.Credentials())
	if err != nil {
		s.writeBackendError(w, r, "list_datasets", err)
		return
	}
	if datasets == nil {
		datasets = []domain.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// handleDataset assembles the dataset details page. Summary stats are always
// resolved from the preview rows since the backend aggregates carry no
// averages. Charts come from the backend aggregates when available and fall
// back to the preview rows.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	sess, _ := sessionFrom(r.Context())
	creds := sess.Credentials()

	var (
		ds       domain.Dataset
		preds    []domain.Prediction
		stats    domain.DatasetStats
		statsErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		ds, err = s.backend.GetDataset(ctx, creds, id)
		return err
	})
	g.Go(func() error {
		var err error
		preds, err = s.backend.ListPredictionsByDataset(ctx, creds, id)
		return err
	})
	g.Go(func() error {
		stats, statsErr = s.backend.DatasetStats(ctx, creds, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.writeBackendError(w, r, "get_dataset", err)
		return
	}

	page := datasetPage{
		Dataset:     ds,
		Name:        ds.Name(),
		Stats:       domain.ComputePreviewStats(ds.CSVData),
		Summary:     domain.SummarizePredictions(preds),
		Predictions: preds,
	}
	if page.Predictions == nil {
		page.Predictions = []domain.Prediction{}
	}
	page.StatsText = statsText(page.Stats)

	if statsErr == nil && !stats.Empty() {
		page.Charts = domain.ChartDataFromStats(stats)
		page.ChartSource = chartSourceBackend
	} else {
		if statsErr != nil {
			s.logger.Debug("dataset stats unavailable, using preview rows", "dataset_id", id, "error", statsErr)
		}
		page.Charts = domain.BuildChartData(ds.CSVData)
		page.ChartSource = chartSourcePreview
	}

	writeJSON(w, http.StatusOK, page)
}

func statsText(st domain.PreviewStats) map[string]string {
	return map[string]string{
		string(domain.AirTemp):         domain.FormatStat(st.AvgAirTemperature),
		string(domain.ProcessTemp):     domain.FormatStat(st.AvgProcessTemperature),
		string(domain.RotationalSpeed): domain.FormatStat(st.AvgRotationalSpeed),
		string(domain.Torque):          domain.FormatStat(st.AvgTorque),
		string(domain.ToolWear):        domain.FormatStat(st.AvgToolWear),
	}
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	sess, _ := sessionFrom(r.Context())
	if err := s.backend.DeleteDataset(r.Context(), sess.Credentials(), id); err != nil {
		s.writeBackendError(w, r, "delete_dataset", err)
		return
	}
	s.logger.Info("dataset deleted", "dataset_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/datasets"})
}

// handleUpload checks a multipart "file" field and forwards it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadBytes+(1<<20))
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 10 MB")
			return
		}
		writeError(w, http.StatusBadRequest, "a CSV file is required in the \"file\" field")
		return
	}
	defer file.Close()

	if err := domain.ValidateUpload(hdr.Filename, hdr.Size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, _ := sessionFrom(r.Context())
	ds, err := s.backend.UploadDataset(r.Context(), sess.Credentials(), hdr.Filename, file)
	if err != nil {
		s.writeBackendError(w, r, "upload_dataset", err)
		return
	}
	s.logger.Info("dataset uploaded", "dataset_id", ds.ID, "bytes", hdr.Size)
	writeJSON(w, http.StatusCreated, map[string]any{
		"dataset":  ds,
		"redirect": "/datasets",
	})
}
