package collect

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV loads a CSV export into source records keyed by header.
func ReadCSV(path string) ([]normalize.SourceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseCSV(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
}

// ParseCSV reads a header row followed by data rows. Short rows leave the
// missing columns absent; blank lines are skipped.
func ParseCSV(r io.Reader) ([]normalize.SourceRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var recs []normalize.SourceRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) && h != "" {
				fields[h] = row[i]
			}
		}
		recs = append(recs, normalize.SourceRecord{Fields: fields, Columns: header, Line: line})
	}
	return recs, nil
}
