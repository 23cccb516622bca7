package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyRow is returned when a streamed row carries no columns.
var ErrEmptyRow = errors.New("row has no columns")

// RawRow represents an unprocessed CSV row message from the source topic.
// Value holds a flat JSON object keyed by the original header strings.
type RawRow struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseRawRow decodes a RawRow's value into a Row. Numbers are kept as
// json.Number so integer-looking identifiers are not widened to floats.
func ParseRawRow(raw RawRow) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw.Value))
	dec.UseNumber()

	var row Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("parse raw row: %w", err)
	}
	if len(row) == 0 {
		return nil, ErrEmptyRow
	}
	return row, nil
}

// RowsFromRecords turns CSV records into Rows keyed by header. Cells are
// kept as trimmed strings; blank header names and cells beyond the header
// are dropped. When a header repeats, the first occurrence wins.
func RowsFromRecords(header []string, records [][]string) []Row {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		names[i] = h
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(names))
		for i, cell := range rec {
			if i >= len(names) || names[i] == "" {
				continue
			}
			row[names[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows
}
