package reader

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readGrid returns the sheet as positional rows (index 0 is row 1). Numeric
// cells become float64, or time.Time when they carry a date format. Booleans
// become bool, everything else keeps its displayed text.
func readGrid(f *excelize.File, sheet string) ([][]any, error) {
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	dates := dateStyles{f: f, cache: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dates.date1904 = *props.Date1904
	}
	grid := make([][]any, len(formatted))
	for r, row := range formatted {
		values := make([]any, len(row))
		for c, text := range row {
			rawText := text
			if r < len(raw) && c < len(raw[r]) {
				rawText = raw[r][c]
			}
			values[c] = cellValue(f, sheet, c+1, r+1, text, rawText, &dates)
		}
		grid[r] = values
	}
	return grid, nil
}

func cellValue(f *excelize.File, sheet string, col, row int, text, raw string, dates *dateStyles) any {
	if text == "" && raw == "" {
		return nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return text
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return text
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return text
		}
		if !dates.isDate(sheet, ref) {
			return n
		}
		// A serial below one is a time of day without a date.
		if n < 1 && !dates.date1904 {
			return text
		}
		t, err := excelize.ExcelDateToTime(n, dates.date1904)
		if err != nil {
			return text
		}
		return t
	default:
		return text
	}
}

// dateStyles caches whether a style ID formats numbers as dates or times.
type dateStyles struct {
	f        *excelize.File
	cache    map[int]bool
	date1904 bool
}

func (d *dateStyles) isDate(sheet, ref string) bool {
	styleID, err := d.f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if v, ok := d.cache[styleID]; ok {
		return v
	}

	v := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		v = isDateFormat(style.NumFmt)
		if style.CustomNumFmt != nil {
			v = isDateLayout(*style.CustomNumFmt)
		}
	}
	d.cache[styleID] = v
	return v
}

func isDateFormat(fmtID int) bool {
	switch fmtID {
	case 14, 15, 16, 17, 18, 19, 20, 21, 22, 27, 30, 36, 45, 46, 47, 50, 57:
		return true
	}
	return false
}

// isDateLayout reports whether a custom number format renders a date or time.
// Quoted and escaped literals and bracketed sections (colours, locales) are
// ignored.
func isDateLayout(layout string) bool {
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(layout) {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case strings.ContainsRune("ymdhs年月日", r):
			return true
		}
	}
	return false
}
