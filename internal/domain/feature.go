package domain

import (
	"sort"
	"strings"
)

// FeatureKey names a canonical field extracted from an uploaded row.
type FeatureKey string

const (
	ProductID       FeatureKey = "product_id"
	Type            FeatureKey = "type"
	AirTemp         FeatureKey = "air_temperature"
	ProcessTemp     FeatureKey = "process_temperature"
	RotationalSpeed FeatureKey = "rotational_speed"
	Torque          FeatureKey = "torque"
	ToolWear        FeatureKey = "tool_wear"
)

// AllFeatures lists every feature in display order.
var AllFeatures = []FeatureKey{ProductID, Type, AirTemp, ProcessTemp, RotationalSpeed, Torque, ToolWear}

// SensorFeatures lists the numeric sensor features in display order.
var SensorFeatures = []FeatureKey{AirTemp, ProcessTemp, RotationalSpeed, Torque, ToolWear}

// Numeric reports whether the feature carries a sensor reading.
func (k FeatureKey) Numeric() bool {
	_, ok := plausibleRanges[k]
	return ok
}

// Label returns the human-readable AI4I column name for the feature.
func (k FeatureKey) Label() string {
	switch k {
	case ProductID:
		return "Product ID"
	case Type:
		return "Type"
	case AirTemp:
		return "Air temperature [K]"
	case ProcessTemp:
		return "Process temperature [K]"
	case RotationalSpeed:
		return "Rotational speed [rpm]"
	case Torque:
		return "Torque [Nm]"
	case ToolWear:
		return "Tool wear [min]"
	default:
		return string(k)
	}
}

// ParseFeatureKey maps a feature name back to its key.
func ParseFeatureKey(s string) (FeatureKey, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, k := range AllFeatures {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ValueRange is an inclusive numeric interval.
type ValueRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var plausibleRanges = map[FeatureKey]ValueRange{
	AirTemp:         {Min: 270, Max: 330},
	ProcessTemp:     {Min: 300, Max: 450},
	RotationalSpeed: {Min: 500, Max: 3000},
	Torque:          {Min: 10, Max: 80},
	ToolWear:        {Min: 0, Max: 250},
}

// PlausibleRange returns the range used by value inference for a sensor
// feature. ok is false for identifier features.
func PlausibleRange(k FeatureKey) (ValueRange, bool) {
	r, ok := plausibleRanges[k]
	return r, ok
}

// patternTable holds the human-authored column name variants per feature.
// It is read-only after package initialization.
var patternTable = map[FeatureKey][]string{
	ProductID: {
		"Product ID", "product_id", "product id", "product-id", "productid",
		"product", "part id", "part number", "serial number", "machine id", "id",
	},
	Type: {
		"Type", "type", "machine_type", "machine type", "machine-type",
		"machinetype", "machine", "Type_", "product type", "quality", "variant",
	},
	AirTemp: {
		"Air temperature [K]", "Air temperature", "air_temperature", "air temperature",
		"air-temperature", "air_temp", "air temp", "Temperature_Air", "airtemp",
		"ambient temperature", "air", "temp", "temperature",
	},
	ProcessTemp: {
		"Process temperature [K]", "Process temperature", "process_temperature",
		"process temperature", "process-temperature", "process_temp", "process temp",
		"Temperature_Process", "processtemp", "process",
	},
	RotationalSpeed: {
		"Rotational speed [rpm]", "Rotational speed", "rotational_speed",
		"rotational speed", "rotation speed", "spindle speed", "rpm", "speed", "rotation",
	},
	Torque: {
		"Torque [Nm]", "Torque", "torque", "torque_nm", "Torque_Value", "nm",
	},
	ToolWear: {
		"Tool wear [min]", "Tool wear", "tool_wear", "tool wear", "Wear_Tool",
		"wear", "tool",
	},
}

// Synonyms returns a copy of the column name variants for a feature.
func Synonyms(k FeatureKey) []string {
	return append([]string(nil), patternTable[k]...)
}

// compiledPatterns caches normalized synonyms (longest first) and their
// loose-match words, derived once from patternTable.
type compiledPatterns struct {
	synonyms []string
	words    []string
}

var compiled = compilePatterns()

func compilePatterns() map[FeatureKey]compiledPatterns {
	out := make(map[FeatureKey]compiledPatterns, len(patternTable))
	for key, raw := range patternTable {
		seenSyn := map[string]bool{}
		seenWord := map[string]bool{}
		var cp compiledPatterns
		for _, s := range raw {
			n := Normalize(s)
			if n == "" || seenSyn[n] {
				continue
			}
			seenSyn[n] = true
			cp.synonyms = append(cp.synonyms, n)
			for _, w := range strings.Fields(n) {
				if len(w) > 1 && !seenWord[w] {
					seenWord[w] = true
					cp.words = append(cp.words, w)
				}
			}
		}
		sort.SliceStable(cp.synonyms, func(i, j int) bool {
			return len(cp.synonyms[i]) > len(cp.synonyms[j])
		})
		out[key] = cp
	}
	return out
}
