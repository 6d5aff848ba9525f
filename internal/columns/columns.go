// Package columns holds the canonical HR column catalogue and the header
// normalization rules applied to every input sheet.
package columns

import (
	"fmt"
	"strings"
)

// Canonical column names.
const (
	EmployeeNo     = "社員番号"
	Name           = "氏名"
	Furigana       = "フリガナ"
	BirthDate      = "生年月日"
	Gender         = "性別"
	HireDate       = "入社年月日"
	DeptCode       = "所属コード"
	DeptName       = "所属名"
	GradeCode      = "資格コード"
	GradeName      = "資格名"
	PositionCode   = "職位コード"
	PositionName   = "職位名"
	HealthCode     = "健保コード"
	No             = "NO"
	EmploymentType = "雇用形態"
)

// Targets lists the canonical columns in output order.
var Targets = []string{
	EmployeeNo, Name, Furigana, BirthDate, Gender, HireDate,
	DeptCode, DeptName, GradeCode, GradeName, PositionCode, PositionName,
	HealthCode, No, EmploymentType,
}

// MasterColumns is the projection written to the マスタ sheet.
var MasterColumns = []string{EmployeeNo, Name, Furigana, BirthDate, Gender, HireDate}

var defaultSynonyms = map[string][]string{
	EmployeeNo:     {"社員番号", "社員No", "社員ＮＯ", "emp_no", "従業員番号"},
	Name:           {"氏名", "名前", "社員名", "name"},
	Furigana:       {"フリガナ", "カナ", "フリガナ氏名"},
	BirthDate:      {"生年月日", "生年月日（西暦）", "誕生日"},
	Gender:         {"性別", "男女"},
	HireDate:       {"入社年月日", "入社日", "入社年月日（西暦）"},
	DeptCode:       {"所属コード", "部署コード", "dept_code"},
	DeptName:       {"所属名", "部署名", "所属"},
	GradeCode:      {"資格コード", "grade_code"},
	GradeName:      {"資格名", "資格"},
	PositionCode:   {"職位コード", "position_code"},
	PositionName:   {"職位名", "職位"},
	HealthCode:     {"健保コード", "health_code"},
	No:             {"NO", "No", "番号"},
	EmploymentType: {"雇用形態", "雇用区分"},
}

// Catalog maps header spellings to canonical column names.
type Catalog struct {
	lookup map[string]string
}

// NewCatalog builds the default catalogue extended with extra synonyms keyed
// by canonical name. Extra keys that are not canonical columns become new
// canonical names of their own.
func NewCatalog(extra map[string][]string) *Catalog {
	c := &Catalog{lookup: make(map[string]string)}
	// Targets order keeps resolution stable when a spelling is listed twice.
	for _, canon := range Targets {
		for _, s := range defaultSynonyms[canon] {
			c.add(s, canon)
		}
	}
	for canon, synonyms := range extra {
		c.add(canon, canon)
		for _, s := range synonyms {
			c.add(s, canon)
		}
	}
	return c
}

func (c *Catalog) add(spelling, canon string) {
	spelling = strings.TrimSpace(spelling)
	if spelling == "" {
		return
	}
	if _, ok := c.lookup[spelling]; !ok {
		c.lookup[spelling] = canon
	}
}

// Canonical resolves a header cell to its canonical column name.
func (c *Catalog) Canonical(name string) (string, bool) {
	canon, ok := c.lookup[strings.TrimSpace(name)]
	return canon, ok
}

// Normalize converts a header row into unique column names. Known spellings
// become canonical names, blanks become col_<index> and repeated names get a
// _1, _2, ... suffix.
func (c *Catalog) Normalize(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch canon, ok := c.lookup[h]; {
		case ok:
			names[i] = canon
		case h == "":
			names[i] = fmt.Sprintf("col_%d", i)
		default:
			names[i] = h
		}
	}
	return Dedup(names)
}

// IsHeaderRow reports whether any cell of row is a known column spelling.
func (c *Catalog) IsHeaderRow(row []string) bool {
	for _, cell := range row {
		if _, ok := c.Canonical(cell); ok {
			return true
		}
	}
	return false
}

// Dedup suffixes repeated names so every column name is unique.
func Dedup(names []string) []string {
	seen := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}

	out := make([]string, len(names))
	for i, n := range names {
		count, dup := seen[n]
		if !dup {
			seen[n] = 0
			out[i] = n
			continue
		}
		for {
			count++
			candidate := fmt.Sprintf("%s_%d", n, count)
			if !taken[candidate] {
				seen[n] = count
				taken[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// Generic returns col_0 .. col_{n-1}.
func Generic(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("col_%d", i)
	}
	return names
}
