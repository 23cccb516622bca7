package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPredictions() []Prediction {
	return []Prediction{
		{ID: 1, ProductID: "M14860", Label: LabelNormal, Confidence: 0.97},
		{ID: 2, ProductID: "L47181", Label: LabelFailure, Confidence: 0.81},
		{ID: 3, ProductID: "L47182", Label: LabelNormal, Confidence: 0.93},
		{ID: 4, ProductID: "H29424", Label: LabelFailure, Confidence: 0.66},
	}
}

func TestSummarizePredictions(t *testing.T) {
	s := SummarizePredictions(testPredictions())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Normal)
	assert.Equal(t, 2, s.Failure)
	require.NotNil(t, s.FailureRate)
	assert.Equal(t, 50.0, *s.FailureRate)

	empty := SummarizePredictions(nil)
	assert.Nil(t, empty.FailureRate)
}

func TestFilterPredictions(t *testing.T) {
	preds := testPredictions()

	got := FilterPredictions(preds, "l471")
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	assert.Len(t, FilterPredictions(preds, "  "), 4)
	assert.Empty(t, FilterPredictions(preds, "zzz"))
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	tests := []struct {
		name      string
		page      int
		perPage   int
		wantPage  int
		wantFirst int
		wantLen   int
	}{
		{"first page default size", 1, 0, 1, 0, 10},
		{"last partial page", 3, 10, 3, 20, 3},
		{"page past end clamps", 9, 10, 3, 20, 3},
		{"page zero clamps", 0, 10, 1, 0, 10},
		{"custom size", 2, 5, 2, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(items, tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, p.Page)
			require.Len(t, p.Items, tt.wantLen)
			assert.Equal(t, tt.wantFirst, p.Items[0])
			assert.Equal(t, 23, p.TotalItems)
		})
	}

	t.Run("empty input has one empty page", func(t *testing.T) {
		p := Paginate([]string(nil), 4, 10)
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 1, p.TotalPages)
		assert.Empty(t, p.Items)
	})
}

func TestRadarSeries(t *testing.T) {
	features := map[string]any{
		"torque":       40.0,
		"air_temp":     300.0,
		"type":         "M",
		"tool_wear":    json.Number("150"),
		"process_temp": "310",
	}
	got := RadarSeries(features)

	want := []LabelValue{
		{Label: "air_temp", Value: 1, Raw: 300},
		{Label: "tool_wear", Value: 0.5, Raw: 150},
		{Label: "torque", Value: 40.0 / 300.0, Raw: 40},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("radar series mismatch (-want +got):\n%s", diff)
	}
}

func TestRadarSeries_CapsFeatureCount(t *testing.T) {
	features := map[string]any{}
	for i := range 12 {
		features[fmt.Sprintf("f%02d", i)] = float64(i + 1)
	}
	got := RadarSeries(features)
	require.Len(t, got, MaxRadarFeatures)
	assert.Equal(t, "f00", got[0].Label)
	assert.Equal(t, 1.0, got[MaxRadarFeatures-1].Value)
}

func TestRadarSeries_NonPositivePeak(t *testing.T) {
	got := RadarSeries(map[string]any{"a": 0.0, "b": -2.0})
	require.Len(t, got, 2)
	assert.Equal(t, -2.0, got[1].Value)
	assert.Nil(t, RadarSeries(nil))
}

func TestTopFactors(t *testing.T) {
	p := Prediction{
		Features:          map[string]any{"a": 0.5, "b": 0.9, "c": 0.0, "d": "x"},
		FeatureImportance: map[string]float64{"b": 0.4},
	}
	got := TopFactors(p, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Feature)
	assert.Equal(t, "b", got[1].Feature)
	require.NotNil(t, got[1].Importance)
	assert.Equal(t, 0.4, *got[1].Importance)
	assert.Nil(t, got[0].Importance)
}
