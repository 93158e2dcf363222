package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// csvExtractor converts CSV files into header-keyed rows
type csvExtractor struct{}

var _ Extractor = (*csvExtractor)(nil)

// NewCSVExtractor creates the spreadsheet extractor for CSV content
func NewCSVExtractor() Extractor {
	return &csvExtractor{}
}

// Extract parses the CSV file. The first record is treated as the header row;
// every following record becomes one map keyed by header.
func (e *csvExtractor) Extract(_ context.Context, path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Mimetype: "text/csv", Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are common in the wild

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &Error{Mimetype: "text/csv", Path: path, Err: fmt.Errorf("failed to parse CSV: %w", err)}
	}

	payload := &Payload{Category: CategorySpreadsheet}
	if len(records) == 0 {
		return payload, nil
	}

	headers := records[0]
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = value
			}
		}
		payload.Rows = append(payload.Rows, row)
	}

	return payload, nil
}
