package merger

import (
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/ryabkov82/hrtool/internal/table"
	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8
	maxColWidth = 60
)

// bookWriter streams tables into the sheets of one workbook. A table larger
// than maxRows continues on <name>_2, <name>_3, ... each with its header row.
type bookWriter struct {
	out         *excelize.File
	maxRows     int
	headerStyle int
	dateStyle   int
	clockStyle  int
	sheets      []string
}

const (
	dateLayout  = "yyyy/m/d"
	clockLayout = "yyyy/m/d h:mm:ss"
)

func newBookWriter(out *excelize.File, maxRows int) (*bookWriter, error) {
	style, err := out.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "9BC2E6", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	bw := &bookWriter{out: out, maxRows: maxRows, headerStyle: style}

	layout := dateLayout
	if bw.dateStyle, err = out.NewStyle(&excelize.Style{CustomNumFmt: &layout}); err != nil {
		return nil, fmt.Errorf("create date style: %w", err)
	}
	clock := clockLayout
	if bw.clockStyle, err = out.NewStyle(&excelize.Style{CustomNumFmt: &clock}); err != nil {
		return nil, fmt.Errorf("create date-time style: %w", err)
	}
	return bw, nil
}

// WriteTable writes t under name, splitting it into parts when needed.
// It returns the names of the sheets written.
func (bw *bookWriter) WriteTable(name string, t *table.Table) ([]string, error) {
	perSheet := bw.maxRows - 1
	var written []string

	for part, start := 1, 0; ; part++ {
		end := min(start+perSheet, len(t.Rows))
		sheet := name
		if part > 1 {
			sheet = fmt.Sprintf("%s_%d", name, part)
		}
		if err := bw.writeSheet(sheet, t.Header, t.Rows[start:end]); err != nil {
			return written, err
		}
		written = append(written, sheet)

		start = end
		if start >= len(t.Rows) {
			return written, nil
		}
	}
}

func (bw *bookWriter) writeSheet(sheet string, header []string, rows [][]any) error {
	if err := bw.addSheet(sheet); err != nil {
		return err
	}

	sw, err := bw.out.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer for %s: %w", sheet, err)
	}

	for i, w := range columnWidths(header, rows) {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return fmt.Errorf("set column width on %s: %w", sheet, err)
		}
	}

	if len(header) > 0 {
		if err := sw.SetPanes(&excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header on %s: %w", sheet, err)
		}
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = excelize.Cell{Value: h, StyleID: bw.headerStyle}
		}
		if err := sw.SetRow("A1", cells); err != nil {
			return fmt.Errorf("write header on %s: %w", sheet, err)
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, bw.rowValues(row)); err != nil {
			return fmt.Errorf("write row %d on %s: %w", r+2, sheet, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", sheet, err)
	}
	bw.sheets = append(bw.sheets, sheet)
	return nil
}

// addSheet reuses the default sheet of a fresh workbook for the first table.
func (bw *bookWriter) addSheet(sheet string) error {
	if len(bw.sheets) == 0 {
		list := bw.out.GetSheetList()
		if len(list) == 1 {
			if err := bw.out.SetSheetName(list[0], sheet); err != nil {
				return fmt.Errorf("rename sheet to %s: %w", sheet, err)
			}
			return nil
		}
	}
	if _, err := bw.out.NewSheet(sheet); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	return nil
}

// rowValues converts cells to values the stream writer stores natively.
// Empty strings are left as missing cells and dates keep a date format.
func (bw *bookWriter) rowValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case string:
			if x != "" {
				out[i] = x
			}
		case nil, float64, bool, int, int64:
			out[i] = x
		case time.Time:
			style := bw.dateStyle
			if table.HasClock(x) {
				style = bw.clockStyle
			}
			out[i] = excelize.Cell{Value: x, StyleID: style}
		default:
			out[i] = table.Text(x)
		}
	}
	return out
}

// columnWidths sizes each column to its widest cell, counting East Asian
// wide characters as two.
func columnWidths(header []string, rows [][]any) []float64 {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if i >= len(widths) {
				break
			}
			widths[i] = max(widths[i], runewidth.StringWidth(table.Text(v)))
		}
	}

	out := make([]float64, len(widths))
	for i, w := range widths {
		out[i] = float64(min(max(w+2, minColWidth), maxColWidth))
	}
	return out
}
