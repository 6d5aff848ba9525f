package consolidate

import (
	"strings"

	"github.com/ryabkov82/hrtool/internal/columns"
	"github.com/ryabkov82/hrtool/internal/table"
)

// Masters maps codes to their most common name across all sheets.
type Masters struct {
	Dept     map[string]string
	Grade    map[string]string
	Position map[string]string
}

type codePair struct {
	code, name string
	pick       func(*Masters) map[string]string
}

var codePairs = []codePair{
	{columns.DeptCode, columns.DeptName, func(m *Masters) map[string]string { return m.Dept }},
	{columns.GradeCode, columns.GradeName, func(m *Masters) map[string]string { return m.Grade }},
	{columns.PositionCode, columns.PositionName, func(m *Masters) map[string]string { return m.Position }},
}

// tally counts names per code, remembering first-seen order for ties.
type tally struct {
	counts map[string]map[string]int
	order  map[string][]string
}

func newTally() *tally {
	return &tally{counts: make(map[string]map[string]int), order: make(map[string][]string)}
}

func (t *tally) add(code, name string) {
	names, ok := t.counts[code]
	if !ok {
		names = make(map[string]int)
		t.counts[code] = names
	}
	if names[name] == 0 {
		t.order[code] = append(t.order[code], name)
	}
	names[name]++
}

func (t *tally) winners() map[string]string {
	out := make(map[string]string, len(t.counts))
	for code, names := range t.counts {
		best, bestN := "", 0
		for _, name := range t.order[code] {
			if n := names[name]; n > bestN {
				best, bestN = name, n
			}
		}
		out[code] = best
	}
	return out
}

// BuildMasters scans every sheet holding a code column and its name column.
func BuildMasters(sheets []table.Sheet) Masters {
	tallies := make([]*tally, len(codePairs))
	for i := range tallies {
		tallies[i] = newTally()
	}

	for si := range sheets {
		s := &sheets[si]
		for pi, p := range codePairs {
			ci, ni := s.Index(p.code), s.Index(p.name)
			if ci < 0 || ni < 0 {
				continue
			}
			for _, row := range s.Rows {
				code := strings.TrimSpace(table.Text(table.Cell(row, ci)))
				name := strings.TrimSpace(table.Text(table.Cell(row, ni)))
				if code != "" && name != "" {
					tallies[pi].add(code, name)
				}
			}
		}
	}

	return Masters{
		Dept:     tallies[0].winners(),
		Grade:    tallies[1].winners(),
		Position: tallies[2].winners(),
	}
}

// Apply overwrites name cells of row whose code is known to the masters.
func (m Masters) Apply(header []string, row []any) {
	for _, p := range codePairs {
		ci, ni := indexOf(header, p.code), indexOf(header, p.name)
		if ci < 0 || ni < 0 {
			continue
		}
		code := strings.TrimSpace(table.Text(table.Cell(row, ci)))
		if code == "" {
			continue
		}
		if name, ok := p.pick(&m)[code]; ok {
			row[ni] = name
		}
	}
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
