package merger

import (
	"github.com/ryabkov82/hrtool/internal/columns"
	"github.com/ryabkov82/hrtool/internal/table"
)

// SourceColumn holds <file>/<sheet> when source tracking is enabled.
const SourceColumn = "__source__"

// Concatenate stacks the rows of all sheets in order. Columns are aligned by
// header name; the merged header lists every name in first-seen order and
// cells a sheet does not have stay empty.
func Concatenate(sheets []table.Sheet, addSource bool) *table.Table {
	merged := &table.Table{}
	pos := make(map[string]int)
	for i := range sheets {
		for _, h := range sheets[i].Header {
			if _, ok := pos[h]; !ok {
				pos[h] = len(merged.Header)
				merged.Header = append(merged.Header, h)
			}
		}
	}

	if addSource {
		names := columns.Dedup(append(append([]string(nil), merged.Header...), SourceColumn))
		merged.Header = append(merged.Header, names[len(names)-1])
	}
	width := len(merged.Header)

	for i := range sheets {
		s := &sheets[i]
		idx := make([]int, len(s.Header))
		for c, h := range s.Header {
			idx[c] = pos[h]
		}
		for _, row := range s.Rows {
			out := make([]any, width)
			for c, v := range row {
				if c < len(idx) {
					out[idx[c]] = v
				}
			}
			if addSource {
				out[width-1] = s.Source()
			}
			merged.Rows = append(merged.Rows, out)
		}
	}
	return merged
}
