package export

import (
	"errors"
	"fmt"
	"time"
)

// ErrNothingToExport is returned by every renderer when the table has no rows.
var ErrNothingToExport = errors.New("nothing to export")

// KeyValue is one line of the info block printed under a report title.
type KeyValue struct {
	Key   string
	Value string
}

// Total requests a summary row holding the sum of a numeric column.
type Total struct {
	Label  string
	Column int
}

// Table is the uniform shape every serializer renders. Cells may be string,
// integer, float or *float64 (nil prints empty).
type Table struct {
	Title     string
	Subtitle  string
	Info      []KeyValue
	Columns   []string
	Rows      [][]interface{}
	Total     *Total
	PrintedAt time.Time
}

// Validate reports ErrNothingToExport for empty tables and rejects ragged rows.
func (t Table) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	if len(t.Rows) == 0 {
		return ErrNothingToExport
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	if t.Total != nil && (t.Total.Column < 0 || t.Total.Column >= len(t.Columns)) {
		return fmt.Errorf("total column %d out of range", t.Total.Column)
	}
	return nil
}

// TotalValue sums the designated total column. Non-numeric cells count as zero.
func (t Table) TotalValue() float64 {
	if t.Total == nil {
		return 0
	}
	var sum float64
	for _, row := range t.Rows {
		if v, ok := numeric(row[t.Total.Column]); ok {
			sum += v
		}
	}
	return sum
}

// TotalRow renders the summary row as display strings, or nil when no total was requested.
func (t Table) TotalRow() []string {
	if t.Total == nil {
		return nil
	}
	row := make([]string, len(t.Columns))
	label := t.Total.Label
	if label == "" {
		label = "Total"
	}
	labelCol := 0
	if t.Total.Column == 0 && len(row) > 1 {
		labelCol = 1
	}
	row[labelCol] = label
	row[t.Total.Column] = FormatNumber(t.TotalValue())
	return row
}

func (t Table) printedAt() time.Time {
	if t.PrintedAt.IsZero() {
		return time.Now()
	}
	return t.PrintedAt
}

func numeric(cell interface{}) (float64, bool) {
	switch v := cell.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	default:
		return 0, false
	}
}
