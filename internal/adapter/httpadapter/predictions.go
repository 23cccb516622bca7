package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/machintel/machintel-service/internal/domain"
)

// topFactorCount is the number of contributing factors shown for a failure.
const topFactorCount = 3

type predictionsPage struct {
	DatasetID int64                          `json:"dataset_id,omitempty"`
	Query     string                         `json:"query,omitempty"`
	Summary   domain.PredictionSummary       `json:"summary"`
	Page      domain.Page[domain.Prediction] `json:"page"`
}

type predictionPage struct {
	Prediction domain.Prediction   `json:"prediction"`
	Radar      []domain.LabelValue `json:"radar"`
	Factors    []domain.Factor     `json:"factors,omitempty"`
	Dataset    *domain.Dataset     `json:"dataset,omitempty"`
}

// handleListPredictions serves ?dataset=&q=&page=. The summary counts
// every prediction in scope; the search only narrows the listed page.
func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	creds := sess.Credentials()
	datasetID := queryInt(r, "dataset")

	var (
		preds []domain.Prediction
		err   error
	)
	if datasetID > 0 {
		preds, err = s.backend.ListPredictionsByDataset(r.Context(), creds, datasetID)
	} else {
		preds, err = s.backend.ListPredictions(r.Context(), creds)
	}
	if err != nil {
		s.writeBackendError(w, r, "list_predictions", err)
		return
	}

	q := r.URL.Query().Get("q")
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page := domain.Paginate(domain.FilterPredictions(preds, q), pageNum, domain.DefaultPerPage)
	if page.Items == nil {
		page.Items = []domain.Prediction{}
	}

	writeJSON(w, http.StatusOK, predictionsPage{
		DatasetID: datasetID,
		Query:     q,
		Summary:   domain.SummarizePredictions(preds),
		Page:      page,
	})
}

// handlePrediction serves one prediction with its radar series. The related
// dataset is included when it can be fetched.
func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}
	sess, _ := sessionFrom(r.Context())
	creds := sess.Credentials()

	p, err := s.backend.GetPrediction(r.Context(), creds, id)
	if err != nil {
		s.writeBackendError(w, r, "get_prediction", err)
		return
	}

	page := predictionPage{
		Prediction: p,
		Radar:      domain.RadarSeries(p.Features),
	}
	if page.Radar == nil {
		page.Radar = []domain.LabelValue{}
	}
	if p.Failed() {
		page.Factors = domain.TopFactors(p, topFactorCount)
	}
	if p.Dataset > 0 {
		ds, err := s.backend.GetDataset(r.Context(), creds, p.Dataset)
		if err != nil {
			s.logger.Debug("related dataset unavailable", "prediction_id", id, "dataset_id", p.Dataset, "error", err)
		} else {
			ds.CSVData = nil
			page.Dataset = &ds
		}
	}

	writeJSON(w, http.StatusOK, page)
}
