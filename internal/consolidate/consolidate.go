// Package consolidate builds the per-employee 詳細 and マスタ tables from the
// sheets of all input workbooks.
package consolidate

import (
	"sort"
	"strings"

	"github.com/ryabkov82/hrtool/internal/columns"
	"github.com/ryabkov82/hrtool/internal/table"
	"go.uber.org/zap"
)

// Result holds the consolidated tables.
type Result struct {
	Detail *table.Table
	Master *table.Table
	// Masters are the code tables that filled in missing names.
	Masters Masters
	// Used counts the sheets that contributed to the detail table.
	Used int
}

// Eligible reports whether a sheet carries an employee key column.
func Eligible(s *table.Sheet) bool {
	return s.Has(columns.EmployeeNo) || s.Has(columns.Name)
}

// Build consolidates the eligible sheets. It returns nil when no sheet carries
// an employee key.
func Build(sheets []table.Sheet, logger *zap.Logger) *Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	keyed := make([]keyedSheet, 0, len(sheets))
	var eligible []table.Sheet
	for i := range sheets {
		s := &sheets[i]
		if !Eligible(s) {
			logger.Warn("社員番号も氏名もないため統合対象外", zap.String("source", s.Source()))
			continue
		}
		keyCol := s.Index(columns.EmployeeNo)
		if keyCol < 0 {
			logger.Info("氏名をキーとして統合", zap.String("source", s.Source()))
			keyCol = s.Index(columns.Name)
		}
		keyed = append(keyed, keyedSheet{Sheet: s, key: keyCol})
		eligible = append(eligible, *s)
	}
	if len(keyed) == 0 {
		return nil
	}

	masters := BuildMasters(eligible)
	detail := buildDetail(keyed, masters)
	logger.Info("詳細表生成完了", zap.Int("rows", detail.Len()))

	master := Project(detail, columns.MasterColumns)
	logger.Info("マスタ表抽出完了", zap.Int("rows", master.Len()))

	return &Result{Detail: detail, Master: master, Masters: masters, Used: len(keyed)}
}

type keyedSheet struct {
	*table.Sheet
	key int
}

type employee struct {
	key    string
	values map[string]any
}

func buildDetail(sheets []keyedSheet, m Masters) *table.Table {
	var order []*employee
	byKey := make(map[string]*employee)

	for _, s := range sheets {
		for _, row := range s.Rows {
			key := strings.TrimSpace(table.Text(table.Cell(row, s.key)))
			if key == "" {
				continue
			}
			e, ok := byKey[key]
			if !ok {
				e = &employee{key: key, values: make(map[string]any)}
				byKey[key] = e
				order = append(order, e)
			}
			for _, col := range columns.Targets {
				if _, set := e.values[col]; set {
					continue
				}
				idx := s.Index(col)
				if idx < 0 {
					continue
				}
				if v := table.Cell(row, idx); !table.IsBlank(v) {
					e.values[col] = v
				}
			}
		}
	}

	detail := &table.Table{Header: append([]string(nil), columns.Targets...)}
	for _, e := range order {
		row := make([]any, len(columns.Targets))
		for i, col := range columns.Targets {
			if v, ok := e.values[col]; ok {
				row[i] = v
			} else {
				row[i] = ""
			}
		}
		row[0] = e.key
		m.Apply(detail.Header, row)
		detail.Rows = append(detail.Rows, row)
	}

	sort.SliceStable(detail.Rows, func(i, j int) bool {
		return table.Text(detail.Rows[i][0]) < table.Text(detail.Rows[j][0])
	})
	return detail
}

// Project copies the named columns that exist in t into a new table.
func Project(t *table.Table, names []string) *table.Table {
	var idx []int
	out := &table.Table{}
	for _, n := range names {
		if i := t.Index(n); i >= 0 {
			idx = append(idx, i)
			out.Header = append(out.Header, n)
		}
	}
	for _, row := range t.Rows {
		r := make([]any, len(idx))
		for j, i := range idx {
			r[j] = table.Cell(row, i)
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}
