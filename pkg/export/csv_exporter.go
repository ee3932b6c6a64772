package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Dataset is the tabular form every report export renders from. Rows are
// keyed by header name so entity builders can emit columns in any order.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Filename builds the canonical download name for an entity export,
// e.g. "applications-report-2025-04-30.csv".
func Filename(entity string, now time.Time) string {
	return fmt.Sprintf("%s-report-%s.csv", entity, now.Format("2006-01-02"))
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. Missing cells become
// empty fields; quoting follows RFC 4180.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
