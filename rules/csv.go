package rules

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var csvHeader = []string{"targetDialect", "pattern", "replacement"}

// parseCSV reads the `targetDialect,pattern,replacement` layout. The header row
// is required; column order follows the header.
func parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	columns, err := csvColumns(header)
	if err != nil {
		return nil, err
	}

	var table Table
	for row := 2; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", row, len(header), len(record))
		}
		dialect := strings.TrimSpace(record[columns[0]])
		entry := Entry{
			Name:        fmt.Sprintf("%s#%d", dialect, row),
			Dialect:     dialect,
			Pattern:     record[columns[1]],
			Replacement: record[columns[2]],
		}
		if entry.Pattern == "" {
			return nil, fmt.Errorf("row %d: pattern is required", row)
		}
		table.Entries = append(table.Entries, entry)
	}
	return &table, nil
}

func csvColumns(header []string) ([3]int, error) {
	var idx [3]int
	for i, want := range csvHeader {
		idx[i] = -1
		for j, got := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(got, "\ufeff")), want) {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return idx, fmt.Errorf("missing column %q in header %v", want, header)
		}
	}
	return idx, nil
}
