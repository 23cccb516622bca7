package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// Prediction labels returned by the failure classifier.
const (
	LabelNormal  = "Normal"
	LabelFailure = "Failure"
)

// DefaultPerPage is the page size of the predictions listing.
const DefaultPerPage = 10

// MaxRadarFeatures caps the number of axes on the feature radar chart.
const MaxRadarFeatures = 8

// Prediction is one classified machine from a dataset.
type Prediction struct {
	ID                int64              `json:"id"`
	Dataset           int64              `json:"dataset"`
	ProductID         string             `json:"product_id"`
	Label             string             `json:"prediction"`
	Confidence        float64            `json:"confidence"`
	Features          map[string]any     `json:"features,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	ModelVersion      string             `json:"model_version,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Failed reports whether the machine was classified as failing.
func (p Prediction) Failed() bool {
	return p.Label == LabelFailure
}

// PredictionSummary counts predictions by label.
type PredictionSummary struct {
	Total       int      `json:"total"`
	Normal      int      `json:"normal"`
	Failure     int      `json:"failure"`
	FailureRate *float64 `json:"failure_rate"`
}

// SummarizePredictions counts labels. FailureRate is a percentage and is
// nil for an empty input.
func SummarizePredictions(preds []Prediction) PredictionSummary {
	s := PredictionSummary{Total: len(preds)}
	for _, p := range preds {
		switch p.Label {
		case LabelNormal:
			s.Normal++
		case LabelFailure:
			s.Failure++
		}
	}
	if s.Total > 0 {
		rate := float64(s.Failure) / float64(s.Total) * 100
		s.FailureRate = &rate
	}
	return s
}

// FilterPredictions keeps predictions whose product id contains term,
// ignoring case. An empty term keeps everything.
func FilterPredictions(preds []Prediction, term string) []Prediction {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return preds
	}
	out := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if strings.Contains(strings.ToLower(p.ProductID), term) {
			out = append(out, p)
		}
	}
	return out
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// Paginate returns the requested page of items. perPage <= 0 uses
// DefaultPerPage, and page is clamped to [1, TotalPages].
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(items)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	page = max(1, min(page, pages))

	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalPages: pages,
		TotalItems: total,
	}
}

// LabelValue is one axis of a radar chart.
type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Raw   float64 `json:"raw"`
}

// RadarSeries selects up to MaxRadarFeatures numeric features, ordered by
// name, and scales them by the largest value. When the largest value is not
// positive the raw values are returned unscaled.
func RadarSeries(features map[string]any) []LabelValue {
	numeric := numericFeatures(features)
	if len(numeric) > MaxRadarFeatures {
		numeric = numeric[:MaxRadarFeatures]
	}
	if len(numeric) == 0 {
		return nil
	}

	peak := math.Inf(-1)
	for _, lv := range numeric {
		peak = math.Max(peak, lv.Raw)
	}
	for i := range numeric {
		numeric[i].Value = numeric[i].Raw
		if peak > 0 {
			numeric[i].Value = numeric[i].Raw / peak
		}
	}
	return numeric
}

// Factor is a feature highlighted as contributing to a failure.
type Factor struct {
	Feature    string   `json:"feature"`
	Value      float64  `json:"value"`
	Importance *float64 `json:"importance,omitempty"`
}

// TopFactors returns the n numeric features furthest from 0.5, with their
// importance when the model reported one.
func TopFactors(p Prediction, n int) []Factor {
	numeric := numericFeatures(p.Features)
	sort.SliceStable(numeric, func(i, j int) bool {
		return math.Abs(numeric[i].Raw-0.5) > math.Abs(numeric[j].Raw-0.5)
	})
	if len(numeric) > n {
		numeric = numeric[:n]
	}
	out := make([]Factor, 0, len(numeric))
	for _, lv := range numeric {
		f := Factor{Feature: lv.Label, Value: lv.Raw}
		if imp, ok := p.FeatureImportance[lv.Label]; ok && imp != 0 {
			f.Importance = &imp
		}
		out = append(out, f)
	}
	return out
}

// numericFeatures returns the JSON numbers in features sorted by name.
// Numeric strings are not numbers here.
func numericFeatures(features map[string]any) []LabelValue {
	out := make([]LabelValue, 0, len(features))
	for name, v := range features {
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case int:
			f = float64(x)
		case int64:
			f = float64(x)
		case json.Number:
			parsed, err := x.Float64()
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, LabelValue{Label: name, Raw: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
