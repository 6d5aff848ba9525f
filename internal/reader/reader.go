// Package reader loads every worksheet of an input workbook into table.Sheet
// values with normalized headers.
package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ryabkov82/hrtool/internal/columns"
	"github.com/ryabkov82/hrtool/internal/table"
	"github.com/xuri/excelize/v2"
)

// Options configures header detection.
type Options struct {
	Catalog *columns.Catalog
	// HeaderScanRows bounds the search for a header row.
	HeaderScanRows int
	// GenericHeader names columns col_0.. and keeps every row as data when no
	// header row is found. Otherwise the first row becomes the header.
	GenericHeader bool
}

// DefaultOptions returns the built-in detection settings. Callers overlay
// their configuration on top.
func DefaultOptions() Options {
	return Options{
		Catalog:        columns.NewCatalog(nil),
		HeaderScanRows: 50,
	}
}

// Workbook is the parsed content of one input file.
type Workbook struct {
	Path   string
	Sheets []table.Sheet
	// Empty lists worksheets that held no data at all.
	Empty []string
	// HeaderFound records, per entry in Sheets, whether a known header row was detected.
	HeaderFound []bool
}

// ReadWorkbook opens path and reads all of its worksheets in workbook order.
func ReadWorkbook(path string, opts Options) (*Workbook, error) {
	if opts.Catalog == nil {
		opts.Catalog = columns.NewCatalog(nil)
	}
	if opts.HeaderScanRows < 1 {
		opts.HeaderScanRows = 1
	}

	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return nil, &FileError{Path: path, Err: ErrUnsupportedFormat}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: fmt.Errorf("%w: %v", ErrCorruptFile, err)}
	}
	defer f.Close()

	wb := &Workbook{Path: path}
	fileName := filepath.Base(path)

	for _, sheetName := range f.GetSheetList() {
		grid, err := readGrid(f, sheetName)
		if err != nil {
			return nil, &FileError{Path: path, Sheet: sheetName, Err: fmt.Errorf("%w: %v", ErrCorruptFile, err)}
		}

		grid = prune(grid)
		if len(grid) == 0 {
			wb.Empty = append(wb.Empty, sheetName)
			continue
		}

		sheet, found := shape(grid, opts)
		sheet.File = fileName
		sheet.Name = sheetName
		wb.Sheets = append(wb.Sheets, sheet)
		wb.HeaderFound = append(wb.HeaderFound, found)
	}

	return wb, nil
}

// shape splits a pruned grid into header and data rows.
func shape(grid [][]any, opts Options) (table.Sheet, bool) {
	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}

	headerIdx := -1
	for i := 0; i < len(grid) && i < opts.HeaderScanRows; i++ {
		if opts.Catalog.IsHeaderRow(texts(grid[i])) {
			headerIdx = i
			break
		}
	}
	found := headerIdx >= 0

	if !found && opts.GenericHeader {
		return table.Sheet{Header: columns.Generic(width), Rows: grid}, false
	}
	if !found {
		headerIdx = 0
	}

	raw := texts(grid[headerIdx])
	for len(raw) < width {
		raw = append(raw, "")
	}

	sheet := table.Sheet{Header: opts.Catalog.Normalize(raw)}
	for _, row := range grid[headerIdx+1:] {
		// Only a detected header is known to be a label line; a first-row
		// fallback header may equal ordinary data.
		if found && repeatsHeader(row, raw) {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, found
}

// repeatsHeader reports whether row is a copy of the header line, as happens
// when sheets are pasted together.
func repeatsHeader(row []any, header []string) bool {
	for i, h := range header {
		if strings.TrimSpace(table.Text(table.Cell(row, i))) != strings.TrimSpace(h) {
			return false
		}
	}
	return true
}

// prune removes rows and columns that hold no data.
func prune(grid [][]any) [][]any {
	width := 0
	rows := grid[:0:0]
	for _, row := range grid {
		if table.RowBlank(row) {
			continue
		}
		rows = append(rows, row)
		width = max(width, len(row))
	}
	if len(rows) == 0 {
		return nil
	}

	used := make([]bool, width)
	for _, row := range rows {
		for c, v := range row {
			if !table.IsBlank(v) {
				used[c] = true
			}
		}
	}

	keep := make([]int, 0, width)
	for c, u := range used {
		if u {
			keep = append(keep, c)
		}
	}
	if len(keep) == width {
		return rows
	}

	out := make([][]any, len(rows))
	for i, row := range rows {
		trimmed := make([]any, len(keep))
		for j, c := range keep {
			trimmed[j] = table.Cell(row, c)
		}
		out[i] = trimmed
	}
	return out
}

func texts(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(table.Text(v))
	}
	return out
}
