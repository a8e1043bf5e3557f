package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// CSV READER — raw bytes → Table
// ============================================================================
// The caller fetches the bytes from wherever they live (file, bucket).
// Short or long rows are kept as-is; Decode reads missing cells as "".
// ============================================================================

// ReadCSV parses CSV bytes into a Table. The first row is the header.
func ReadCSV(data []byte) (Table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	t := Table{Columns: headers}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("failed to read CSV row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseCSVView parses CSV into a RecordView (convenience wrapper).
// Columns the file lacks report HasColumn == false.
func ParseCSVView(data []byte) (engine.RecordView, LoadReport, error) {
	t, err := ReadCSV(data)
	if err != nil {
		return nil, LoadReport{}, err
	}
	records, report, err := Decode(t)
	if err != nil {
		return nil, report, err
	}
	return engine.NewSliceViewWithColumns(records, PresentColumns(t.Columns)), report, nil
}
