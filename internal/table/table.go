// Package table is the in-memory tabular model shared by the reader, the
// merger and the consolidation step.
package table

import (
	"strconv"
	"strings"
	"time"
)

// Sheet is one worksheet of one input file after header detection.
type Sheet struct {
	File   string // base name of the source workbook
	Name   string // worksheet name
	Header []string
	Rows   [][]any
}

// Source identifies the sheet as <file>/<sheet>.
func (s *Sheet) Source() string {
	return s.File + "/" + s.Name
}

// Index returns the column position of name, or -1.
func (s *Sheet) Index(name string) int {
	return indexOf(s.Header, name)
}

// Has reports whether the sheet has a column called name.
func (s *Sheet) Has(name string) bool {
	return s.Index(name) >= 0
}

// Table is a header plus rows with a cell for every header column.
type Table struct {
	Header []string
	Rows   [][]any
}

// Index returns the column position of name, or -1.
func (t *Table) Index(name string) int {
	return indexOf(t.Header, name)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns row[idx], or nil when the row is shorter.
func Cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// Text renders a cell value the way it is compared and measured.
// Whole floats print without a fractional part so 1001 and "1001" match.
// Dates print as zero-padded yyyy/mm/dd so their text sorts chronologically.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if HasClock(x) {
			return x.Format("2006/01/02 15:04:05")
		}
		return x.Format("2006/01/02")
	default:
		return ""
	}
}

// HasClock reports whether t carries a time of day.
func HasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
}

// IsBlank reports whether the cell renders to whitespace only.
func IsBlank(v any) bool {
	return strings.TrimSpace(Text(v)) == ""
}

// RowBlank reports whether every cell of row is blank.
func RowBlank(row []any) bool {
	for _, v := range row {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
