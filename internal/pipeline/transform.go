package pipeline

import (
	"context"
	"log/slog"

	"github.com/machintel/machintel-service/internal/domain"
	"github.com/machintel/machintel-service/internal/observability"
)

// ReadingTransformer resolves streamed CSV rows with the feature resolver
// and counts how each feature was matched.
type ReadingTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a ReadingTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *ReadingTransformer {
	return &ReadingTransformer{logger: logger, metrics: metrics}
}

// Transform implements Transformer.
func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawRow) (domain.MachineReading, error) {
	reading, err := domain.ResolveMachineReading(raw)
	if err != nil {
		return domain.MachineReading{}, err
	}
	t.observe(reading.Matches)

	if missing := reading.Missing(); len(missing) > 0 {
		t.logger.Debug("row partially resolved",
			"id", reading.ID,
			"missing", missing,
			"offset", raw.Offset,
		)
	}
	return reading, nil
}

func (t *ReadingTransformer) observe(matches []domain.Match) {
	tiers := make(map[domain.FeatureKey]domain.Tier, len(matches))
	for _, m := range matches {
		tiers[m.Feature] = m.Tier
	}
	for _, key := range domain.AllFeatures {
		t.metrics.ResolvedFeatures.WithLabelValues(string(key), tiers[key].String()).Inc()
	}
}
