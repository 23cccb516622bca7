package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is one parsed CSV record keyed by its original header strings.
// Values are strings, numbers (float64, int, json.Number), bools or nil.
type Row map[string]any

// Tier identifies which resolution strategy produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierLoose
	TierRange
	TierIDColumn
	TierValueToken
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierLoose:
		return "loose"
	case TierRange:
		return "range"
	case TierIDColumn:
		return "id_column"
	case TierValueToken:
		return "value_token"
	default:
		return "none"
	}
}

// Match describes how a feature was resolved from a row.
type Match struct {
	Feature FeatureKey `json:"feature"`
	Column  string     `json:"column"`
	Tier    Tier       `json:"-"`
	Value   any        `json:"value"`
}

type column struct {
	name  string
	norm  string
	value any
}

// columnsOf returns the row's columns sorted by header so every scan has a
// well-defined "first" column.
func columnsOf(row Row) []column {
	cols := make([]column, 0, len(row))
	for name, v := range row {
		cols = append(cols, column{name: name, norm: Normalize(name), value: v})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].name < cols[j].name })
	return cols
}

// ResolveNumeric returns the best-guess numeric value for key, or false
// when no column could be resolved.
func ResolveNumeric(row Row, key FeatureKey) (float64, bool) {
	m, ok := resolveNumericMatch(columnsOf(row), key)
	if !ok {
		return 0, false
	}
	v, _ := numericValue(m.Value)
	return v, true
}

// ResolveString returns the best-guess string value for key, or "" when no
// column could be resolved.
func ResolveString(row Row, key FeatureKey) string {
	m, ok := resolveStringMatch(columnsOf(row), key)
	if !ok {
		return ""
	}
	s, _ := stringValue(m.Value)
	return s
}

// Explain resolves key the same way ResolveNumeric or ResolveString would
// (chosen by the feature's type) and reports the winning column and tier.
func Explain(row Row, key FeatureKey) (Match, bool) {
	cols := columnsOf(row)
	if key.Numeric() {
		return resolveNumericMatch(cols, key)
	}
	return resolveStringMatch(cols, key)
}

func resolveNumericMatch(cols []column, key FeatureKey) (Match, bool) {
	accept := func(v any) bool {
		_, ok := numericValue(v)
		return ok
	}
	if m, ok := matchExact(cols, key, accept); ok {
		return m, true
	}
	if m, ok := matchLoose(cols, key, accept); ok {
		return m, true
	}
	if r, ok := PlausibleRange(key); ok {
		for _, c := range cols {
			if excluded(c, key) || namedForOther(c, key) {
				continue
			}
			if v, ok := numericValue(c.value); ok && r.Contains(v) {
				return Match{Feature: key, Column: c.name, Tier: TierRange, Value: c.value}, true
			}
		}
	}
	return Match{Feature: key}, false
}

func resolveStringMatch(cols []column, key FeatureKey) (Match, bool) {
	if key == ProductID {
		for _, c := range cols {
			if c.norm != "id" {
				continue
			}
			if s, ok := stringValue(c.value); ok && !purelyNumeric(s) {
				return Match{Feature: key, Column: c.name, Tier: TierIDColumn, Value: c.value}, true
			}
		}
	}

	accept := func(v any) bool {
		_, ok := stringValue(v)
		return ok
	}
	if m, ok := matchExact(cols, key, accept); ok {
		return m, true
	}
	if m, ok := matchLoose(cols, key, accept); ok {
		return m, true
	}

	if key == Type {
		for _, c := range cols {
			if excluded(c, key) {
				continue
			}
			s, ok := stringValue(c.value)
			if ok && CanonicalType(s) != "" {
				return Match{Feature: key, Column: c.name, Tier: TierValueToken, Value: s}, true
			}
		}
	}
	return Match{Feature: key}, false
}

// matchExact implements containment matching: a column matches when its
// normalized name contains a synonym or is contained in one. Candidates are
// tried longest synonym first; a candidate whose value is rejected by accept
// is skipped.
func matchExact(cols []column, key FeatureKey, accept func(any) bool) (Match, bool) {
	type candidate struct {
		col   column
		score int
	}
	var candidates []candidate
	for _, c := range cols {
		if c.norm == "" || excluded(c, key) {
			continue
		}
		best := 0
		for _, syn := range compiled[key].synonyms {
			if len(syn) <= best {
				break
			}
			if strings.Contains(c.norm, syn) || strings.Contains(syn, c.norm) {
				best = len(syn)
			}
		}
		if best > 0 {
			candidates = append(candidates, candidate{col: c, score: best})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	for _, cand := range candidates {
		if accept(cand.col.value) {
			return Match{Feature: key, Column: cand.col.name, Tier: TierExact, Value: cand.col.value}, true
		}
	}
	return Match{}, false
}

func matchLoose(cols []column, key FeatureKey, accept func(any) bool) (Match, bool) {
	words := compiled[key].words
	for _, c := range cols {
		if c.norm == "" || excluded(c, key) {
			continue
		}
		for _, w := range words {
			if strings.Contains(c.norm, w) && accept(c.value) {
				return Match{Feature: key, Column: c.name, Tier: TierLoose, Value: c.value}, true
			}
		}
	}
	return Match{}, false
}

// excluded keeps a generic "id" column from being read as anything but the
// product identifier.
func excluded(c column, key FeatureKey) bool {
	return c.norm == "id" && key != ProductID
}

// namedForOther reports whether the column's name matches a synonym of a
// feature other than key. Range inference never reads such a column, so a
// blank "Tool wear" cell cannot borrow the "Torque" or "Machine failure"
// value.
func namedForOther(c column, key FeatureKey) bool {
	if c.norm == "" {
		return false
	}
	for _, other := range AllFeatures {
		if other == key {
			continue
		}
		for _, syn := range compiled[other].synonyms {
			if strings.Contains(c.norm, syn) || strings.Contains(syn, c.norm) {
				return true
			}
		}
	}
	return false
}

// numericValue converts a raw cell to a finite float64.
func numericValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringValue renders a raw cell as a non-empty trimmed string.
func stringValue(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return "", false
	}
	return s, s != ""
}

// purelyNumeric reports whether s is an unsigned decimal such as "14860" or
// "3.5". Signs, exponents, hyphens, letters and spellings like "inf" or
// "nan" all make an identifier, so "-5" and "M-14860" are not numeric here.
func purelyNumeric(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// CanonicalType folds a machine quality token to "H", "M" or "L".
// Anything else yields "".
func CanonicalType(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H", "HIGH":
		return "H"
	case "M", "MEDIUM":
		return "M"
	case "L", "LOW":
		return "L"
	default:
		return ""
	}
}
