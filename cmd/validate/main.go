// Command validate checks that machine CSV exports can be mapped onto the
// canonical feature schema. For each file it reports which column and match
// tier each feature resolved from, and fails when a required feature is
// missing from every sampled row.
//
// Usage:
//
//	go run ./cmd/validate -sample 50 data/*.csv
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/machintel/machintel-service/internal/domain"
)

// requiredFeatures must resolve for a file to be usable for prediction.
var requiredFeatures = []domain.FeatureKey{
	domain.Type,
	domain.AirTemp,
	domain.ProcessTemp,
	domain.RotationalSpeed,
	domain.Torque,
	domain.ToolWear,
}

// phase tracks pass/fail for one file.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// featureCoverage records how one feature resolved across the sample.
type featureCoverage struct {
	Feature  domain.FeatureKey
	Column   string
	Tier     domain.Tier
	Resolved int
	Sampled  int
}

func main() {
	sample := flag.Int("sample", 100, "number of data rows to sample per file")
	flag.Parse()

	if flag.NArg() == 0 || *sample <= 0 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "usage: validate [-sample N] file.csv...")
		os.Exit(2)
	}

	var phases []*phase
	for _, path := range flag.Args() {
		phases = append(phases, validateFile(os.Stdout, path, *sample))
	}

	fmt.Println()
	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       - %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d files failed\n", failed, len(phases))
		os.Exit(1)
	}
}

func validateFile(w io.Writer, path string, sample int) *phase {
	p := &phase{name: path}

	rows, err := readSample(path, sample)
	if err != nil {
		p.errorf("read: %v", err)
		return p
	}

	fmt.Fprintf(w, "%s (%d rows sampled)\n", path, len(rows))
	cov := coverage(rows)
	for _, c := range cov {
		if c.Resolved == 0 {
			fmt.Fprintf(w, "  %-22s missing\n", c.Feature)
			continue
		}
		fmt.Fprintf(w, "  %-22s %-28q %-11s %d/%d rows\n", c.Feature, c.Column, c.Tier, c.Resolved, c.Sampled)
	}

	if missing := missingRequired(cov); len(missing) > 0 {
		p.errorf("Missing required features: %s", strings.Join(missing, ", "))
	}
	return p
}

func readSample(path string, n int) ([]domain.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	var records [][]string
	for len(records) < n {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("no data rows")
	}
	return domain.RowsFromRecords(header, records), nil
}

// coverage explains every feature against each row. The reported column and
// tier come from the first row that resolved the feature.
func coverage(rows []domain.Row) []featureCoverage {
	out := make([]featureCoverage, 0, len(domain.AllFeatures))
	for _, key := range domain.AllFeatures {
		c := featureCoverage{Feature: key, Sampled: len(rows)}
		for _, row := range rows {
			m, ok := domain.Explain(row, key)
			if !ok {
				continue
			}
			if c.Resolved == 0 {
				c.Column = m.Column
				c.Tier = m.Tier
			}
			c.Resolved++
		}
		out = append(out, c)
	}
	return out
}

func missingRequired(cov []featureCoverage) []string {
	resolved := make(map[domain.FeatureKey]bool, len(cov))
	for _, c := range cov {
		resolved[c.Feature] = c.Resolved > 0
	}
	var missing []string
	for _, key := range requiredFeatures {
		if !resolved[key] {
			missing = append(missing, key.Label())
		}
	}
	return missing
}
