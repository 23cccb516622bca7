package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrUnresolvable is returned when a row resolves none of the sensor features.
var ErrUnresolvable = errors.New("row resolves no sensor feature")

// processedClock stamps MachineReading.ProcessedAt.
var processedClock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the clock behind ProcessedAt; nil restores wall time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	processedClock = c
}

// Reading is a Row resolved onto the canonical schema. A nil sensor field
// means the feature could not be resolved, which is distinct from zero.
type Reading struct {
	ProductID          string   `json:"product_id,omitempty"`
	Type               string   `json:"type,omitempty"`
	AirTemperature     *float64 `json:"air_temperature,omitempty"`
	ProcessTemperature *float64 `json:"process_temperature,omitempty"`
	RotationalSpeed    *float64 `json:"rotational_speed,omitempty"`
	Torque             *float64 `json:"torque,omitempty"`
	ToolWear           *float64 `json:"tool_wear,omitempty"`

	// Matches records the column and tier behind every resolved feature.
	Matches []Match `json:"-"`
}

// ResolveReading resolves every canonical feature of row.
func ResolveReading(row Row) Reading {
	cols := columnsOf(row)
	var r Reading

	for _, key := range AllFeatures {
		if key.Numeric() {
			m, ok := resolveNumericMatch(cols, key)
			if !ok {
				continue
			}
			v, _ := numericValue(m.Value)
			*r.field(key) = &v
			r.Matches = append(r.Matches, m)
			continue
		}

		m, ok := resolveStringMatch(cols, key)
		if !ok {
			continue
		}
		s, _ := stringValue(m.Value)
		switch key {
		case ProductID:
			r.ProductID = s
		case Type:
			if t := CanonicalType(s); t != "" {
				s = t
			}
			r.Type = s
		}
		r.Matches = append(r.Matches, m)
	}
	return r
}

func (r *Reading) field(key FeatureKey) **float64 {
	switch key {
	case AirTemp:
		return &r.AirTemperature
	case ProcessTemp:
		return &r.ProcessTemperature
	case RotationalSpeed:
		return &r.RotationalSpeed
	case Torque:
		return &r.Torque
	case ToolWear:
		return &r.ToolWear
	default:
		return nil
	}
}

// Value returns the resolved sensor value for key.
func (r Reading) Value(key FeatureKey) (float64, bool) {
	p := r.field(key)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SensorCount reports how many sensor features resolved.
func (r Reading) SensorCount() int {
	n := 0
	for _, key := range SensorFeatures {
		if _, ok := r.Value(key); ok {
			n++
		}
	}
	return n
}

// Missing lists the features that did not resolve, in display order.
func (r Reading) Missing() []FeatureKey {
	found := make(map[FeatureKey]bool, len(r.Matches))
	for _, m := range r.Matches {
		found[m.Feature] = true
	}
	var out []FeatureKey
	for _, key := range AllFeatures {
		if !found[key] {
			out = append(out, key)
		}
	}
	return out
}

// MachineReading is the normalized record published to the sink topic.
type MachineReading struct {
	ID string `json:"id"`
	Reading
	Sources     map[FeatureKey]string `json:"sources"`
	ObservedAt  time.Time             `json:"observed_at"`
	ProcessedAt time.Time             `json:"processed_at"`
}

// ResolveMachineReading parses and resolves a streamed row. Rows that
// resolve no sensor feature are rejected with ErrUnresolvable.
func ResolveMachineReading(raw RawRow) (MachineReading, error) {
	row, err := ParseRawRow(raw)
	if err != nil {
		return MachineReading{}, err
	}

	reading := ResolveReading(row)
	if reading.SensorCount() == 0 {
		return MachineReading{}, ErrUnresolvable
	}

	sources := make(map[FeatureKey]string, len(reading.Matches))
	for _, m := range reading.Matches {
		sources[m.Feature] = m.Column
	}

	now := processedClock.Now().UTC()
	observed := raw.Timestamp.UTC()
	if raw.Timestamp.IsZero() {
		observed = now
	}

	return MachineReading{
		ID:          readingID(reading.ProductID, raw.Value),
		Reading:     reading,
		Sources:     sources,
		ObservedAt:  observed,
		ProcessedAt: now,
	}, nil
}

// readingID derives a stable identifier from the row payload so replays
// of the same message produce the same ID.
func readingID(productID string, payload []byte) string {
	sum := sha256.Sum256(payload)
	h := hex.EncodeToString(sum[:])[:16]
	if productID == "" {
		return h
	}
	return productID + "-" + h
}
