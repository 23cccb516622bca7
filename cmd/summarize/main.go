// Command summarize reads a machine CSV export and writes the dataset
// summary the dataset page would show for it: preview statistics and chart
// series. With -readings-out it also writes the normalized readings the
// pipeline would publish, stamped with a fixed clock so fixtures are
// reproducible.
//
// Usage:
//
//	go run ./cmd/summarize \
//	  -csv internal/pipeline/testdata/ai4i.csv \
//	  -out summary.json \
//	  -readings-out readings.json
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/machintel/machintel-service/internal/domain"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// summary is the JSON document written to -out.
type summary struct {
	Source  string              `json:"source"`
	Stats   domain.PreviewStats `json:"stats"`
	Display map[string]string   `json:"display"`
	Charts  domain.ChartData    `json:"charts"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV file to summarize")
	out := flag.String("out", "", "output path for the summary JSON")
	readingsOut := flag.String("readings-out", "", "optional output path for normalized readings JSON")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return errors.New("missing required flags: -csv, -out")
	}

	rows, err := readRows(*csvPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("%s: %d rows", *csvPath, len(rows))

	if err := writeJSON(*out, summarize(*csvPath, rows)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	log.Printf("wrote summary: %s", *out)

	if *readingsOut == "" {
		return nil
	}

	domain.SetClock(clockwork.NewFakeClockAt(baseDate.Add(30 * time.Hour)))
	defer domain.SetClock(nil)

	readings, skipped, err := normalize(rows, baseDate)
	if err != nil {
		return err
	}
	if err := writeJSON(*readingsOut, readings); err != nil {
		return fmt.Errorf("writing readings: %w", err)
	}
	log.Printf("wrote %d readings (%d skipped): %s", len(readings), skipped, *readingsOut)
	return nil
}

func readRows(path string) ([]domain.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("no data rows")
	}
	return domain.RowsFromRecords(records[0], records[1:]), nil
}

func summarize(source string, rows []domain.Row) summary {
	st := domain.ComputePreviewStats(rows)
	return summary{
		Source: source,
		Stats:  st,
		Display: map[string]string{
			string(domain.AirTemp):         domain.FormatStat(st.AvgAirTemperature),
			string(domain.ProcessTemp):     domain.FormatStat(st.AvgProcessTemperature),
			string(domain.RotationalSpeed): domain.FormatStat(st.AvgRotationalSpeed),
			string(domain.Torque):          domain.FormatStat(st.AvgTorque),
			string(domain.ToolWear):        domain.FormatStat(st.AvgToolWear),
		},
		Charts: domain.BuildChartData(rows),
	}
}

// normalize resolves each row the way the pipeline does. Rows with no
// sensor feature are counted as skipped.
func normalize(rows []domain.Row, observed time.Time) ([]domain.MachineReading, int, error) {
	readings := make([]domain.MachineReading, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, 0, fmt.Errorf("encode row %d: %w", i+1, err)
		}
		mr, err := domain.ResolveMachineReading(domain.RawRow{Value: payload, Timestamp: observed})
		if errors.Is(err, domain.ErrUnresolvable) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		readings = append(readings, mr)
	}
	return readings, skipped, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
