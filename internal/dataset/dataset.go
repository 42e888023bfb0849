package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dataset is an ingested tabular file: a header row and the data rows below it.
// Cell values are kept as raw strings; typing is the profiler's concern.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// LoadCSV reads a CSV file with a mandatory header row. The dataset name is
// derived from the file name without its extension.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file '%s': %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset file '%s' is empty (header row required)", path)
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			return nil, fmt.Errorf("dataset file '%s' has an empty column name at position %d", path, i+1)
		}
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	return &Dataset{
		Name:    name,
		Columns: header,
		Rows:    records[1:],
	}, nil
}

// Column returns the values of the named column, one per row.
func (d *Dataset) Column(name string) ([]string, bool) {
	for i, col := range d.Columns {
		if col == name {
			values := make([]string, len(d.Rows))
			for r, row := range d.Rows {
				values[r] = row[i]
			}
			return values, true
		}
	}
	return nil, false
}
