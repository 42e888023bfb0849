package profiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/csvchat/csvchat/internal/dataset"
)

// ColumnType is the declared type classification of a profiled column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeString  ColumnType = "string"
	TypeOther   ColumnType = "other"
)

const (
	// DistinctLimit is the cardinality below which distinct values are
	// enumerated verbatim in the profile.
	DistinctLimit = 10

	// TooManySentinel replaces the distinct-value list for high-cardinality columns.
	TooManySentinel = "too many to display"

	// DefinitionPlaceholder marks a column whose semantic definition has not
	// been generated yet.
	DefinitionPlaceholder = "unknown"
)

// ColumnProfile is the statistical description of one column, derived
// directly from the data. Immutable once produced within a session.
type ColumnProfile struct {
	Name            string
	Type            ColumnType
	Min             *float64 // nil for non-numeric columns
	Max             *float64 // nil for non-numeric columns
	DistinctValues  []string // first-seen order; nil when TooManyDistinct
	TooManyDistinct bool
	Definition      string
}

// TableSchema is the ordered column profiles of one ingested table.
type TableSchema struct {
	Table   string
	Columns []ColumnProfile
}

// Profile derives a TableSchema from an ingested dataset. It is deterministic
// for identical input data and has no side effects beyond reading the dataset.
func Profile(ds *dataset.Dataset) TableSchema {
	schema := TableSchema{
		Table:   ds.Name,
		Columns: make([]ColumnProfile, 0, len(ds.Columns)),
	}
	for i, name := range ds.Columns {
		schema.Columns = append(schema.Columns, profileColumn(name, columnValues(ds, i)))
	}
	return schema
}

func columnValues(ds *dataset.Dataset, index int) []string {
	values := make([]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if index < len(row) {
			values = append(values, row[index])
		} else {
			values = append(values, "")
		}
	}
	return values
}

func profileColumn(name string, values []string) ColumnProfile {
	profile := ColumnProfile{
		Name:       name,
		Definition: DefinitionPlaceholder,
	}

	seen := make(map[string]bool)
	var distinct []string
	allInt := true
	allFloat := true
	nonEmpty := 0
	numeric := 0
	var min, max float64

	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		nonEmpty++

		if !seen[value] {
			seen[value] = true
			distinct = append(distinct, value)
		}

		number, numErr := strconv.ParseFloat(value, 64)
		if numErr != nil {
			allInt = false
			allFloat = false
			continue
		}
		if _, intErr := strconv.ParseInt(value, 10, 64); intErr != nil {
			allInt = false
		}
		numeric++
		if numeric == 1 || number < min {
			min = number
		}
		if numeric == 1 || number > max {
			max = number
		}
	}

	switch {
	case nonEmpty == 0:
		profile.Type = TypeOther
	case allInt:
		profile.Type = TypeInteger
	case allFloat:
		profile.Type = TypeFloat
	default:
		profile.Type = TypeString
	}

	if profile.Type == TypeInteger || profile.Type == TypeFloat {
		minCopy, maxCopy := min, max
		profile.Min = &minCopy
		profile.Max = &maxCopy
	}

	if len(distinct) < DistinctLimit {
		profile.DistinctValues = distinct
	} else {
		profile.TooManyDistinct = true
	}

	return profile
}

// PromptText renders the schema as the structured text handed to the
// completion capability as grounding context.
func (s TableSchema) PromptText() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Table: %s\n", s.Table))
	for _, col := range s.Columns {
		b.WriteString(fmt.Sprintf("- column: %s\n", col.Name))
		b.WriteString(fmt.Sprintf("  type: %s\n", col.Type))
		if col.Min != nil && col.Max != nil {
			b.WriteString(fmt.Sprintf("  min: %s\n", formatNumber(*col.Min, col.Type)))
			b.WriteString(fmt.Sprintf("  max: %s\n", formatNumber(*col.Max, col.Type)))
		}
		if col.TooManyDistinct {
			b.WriteString(fmt.Sprintf("  distinct values: %s\n", TooManySentinel))
		} else {
			b.WriteString(fmt.Sprintf("  distinct values: [%s]\n", strings.Join(col.DistinctValues, ", ")))
		}
		b.WriteString(fmt.Sprintf("  definition: %s\n", col.Definition))
	}
	return b.String()
}

func formatNumber(value float64, colType ColumnType) string {
	if colType == TypeInteger {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
