package merger

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ryabkov82/hrtool/internal/config"
	"github.com/ryabkov82/hrtool/internal/reader"
	"github.com/ryabkov82/hrtool/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var runTime = time.Date(2025, 4, 1, 10, 0, 0, 0, time.Local)

func fixedClock() time.Time { return runTime }

// newWorkspace returns a config rooted in a temp dir with an input folder.
func newWorkspace(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()
	require.NoError(t, os.MkdirAll(cfg.InputPath(), 0o755))
	return cfg
}

func writeInput(t *testing.T, cfg *config.Config, name string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(cfg.InputPath(), name)))
}

func readOutput(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func sheetList(t *testing.T, path string) []string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	return f.GetSheetList()
}

func TestMerge_ConcatenatesInFileOrder(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "02_本社.xlsx", [][]any{
		{"社員番号", "氏名", "所属名"},
		{"2001", "佐藤", "本社"},
	})
	writeInput(t, cfg, "01_支社.xlsx", [][]any{
		{"社員No", "名前"},
		{"1001", "山田"},
		{"1002", "鈴木"},
	})

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutputPath(), "統合ファイル_20250401_100000.xlsx"), res.OutputPath)
	assert.Len(t, res.Files, 2)
	assert.Equal(t, 2, res.Sheets)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{MergedSheetName, DetailSheetName, MasterSheetName}, res.OutputSheets)

	rows := readOutput(t, res.OutputPath, MergedSheetName)
	assert.Equal(t, [][]string{
		{"社員番号", "氏名", "所属名"},
		{"1001", "山田"},
		{"1002", "鈴木"},
		{"2001", "佐藤", "本社"},
	}, rows)
}

func TestMerge_SingleFileRoundTrip(t *testing.T) {
	cfg := newWorkspace(t)
	cfg.Consolidate = false
	input := [][]any{
		{"品目", "数量", "単価"},
		{"りんご", 3, 120.5},
		{"みかん", 10, 40},
		{"ぶどう", "", 300},
	}
	writeInput(t, cfg, "items.xlsx", input)

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{MergedSheetName}, sheetList(t, res.OutputPath))

	got := readOutput(t, res.OutputPath, MergedSheetName)
	want := readOutput(t, filepath.Join(cfg.InputPath(), "items.xlsx"), "Sheet1")
	assert.Equal(t, want, got)
}

func TestMerge_RowCountIsSumOfInputs(t *testing.T) {
	cfg := newWorkspace(t)
	counts := []int{0, 1, 5, 12}
	total := 0
	for i, n := range counts {
		rows := [][]any{{"社員番号", "氏名"}}
		for r := 0; r < n; r++ {
			rows = append(rows, []any{i*100 + r, "x"})
		}
		writeInput(t, cfg, filepath.Base(t.Name())+string(rune('a'+i))+".xlsx", rows)
		total += n
	}

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, total, res.Rows)
	assert.Len(t, readOutput(t, res.OutputPath, MergedSheetName), total+1)
}

func TestMerge_HeaderlessSheetKeepsDuplicateRows(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "fruit.xlsx", [][]any{
		{"りんご", 3},
		{"りんご", 3},
		{"りんご", 3},
		{"みかん", 5},
	})

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, [][]string{
		{"りんご", "3"},
		{"りんご", "3"},
		{"りんご", "3"},
		{"みかん", "5"},
	}, readOutput(t, res.OutputPath, MergedSheetName))
}

func TestMerge_DatesKeepTheirValue(t *testing.T) {
	cfg := newWorkspace(t)
	birth := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 12, 5, 9, 30, 0, 0, time.UTC)
	writeInput(t, cfg, "a.xlsx", [][]any{
		{"社員番号", "生年月日", "更新日時"},
		{"1001", birth, updated},
	})

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenFile(res.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	typ, err := f.GetCellType(MergedSheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)

	out, err := reader.ReadWorkbook(res.OutputPath, reader.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out.Sheets, len(res.OutputSheets))
	for _, s := range out.Sheets {
		col := s.Index("生年月日")
		require.GreaterOrEqual(t, col, 0, s.Name)
		assert.Equal(t, birth, s.Rows[0][col], s.Name)
	}
	merged := out.Sheets[0]
	assert.Equal(t, updated, merged.Rows[0][merged.Index("更新日時")])
}

func TestMerge_AddSourceColumn(t *testing.T) {
	cfg := newWorkspace(t)
	cfg.AddSourceFile = true
	writeInput(t, cfg, "a.xlsx", [][]any{{"氏名"}, {"山田"}})

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)

	rows := readOutput(t, res.OutputPath, MergedSheetName)
	assert.Equal(t, [][]string{{"氏名", SourceColumn}, {"山田", "a.xlsx/Sheet1"}}, rows)
}

func TestMerge_ConsolidatedSheets(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "a.xlsx", [][]any{
		{"社員番号", "氏名", "所属コード", "所属名"},
		{"2", "佐藤", "D1", "総務部"},
		{"1", "山田", "D1", "総務部"},
	})
	writeInput(t, cfg, "b.xlsx", [][]any{
		{"社員番号", "性別", "所属コード", "所属名"},
		{"1", "男", "D1", "総務課"},
	})

	core, logs := observer.New(zap.InfoLevel)
	res, err := NewMerger(cfg, zap.New(core), WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.DetailRows)
	assert.Equal(t, 2, res.KeyedSheets)

	built := logs.FilterMessage("グローバルマスタ構築完了").All()
	require.Len(t, built, 1)
	assert.Equal(t, int64(1), built[0].ContextMap()["所属"])

	detail := readOutput(t, res.OutputPath, DetailSheetName)
	require.Len(t, detail, 3)
	assert.Equal(t, "社員番号", detail[0][0])
	assert.Equal(t, []string{"1", "山田", "", "", "男", "", "D1", "総務部"}, detail[1][:8])

	master := readOutput(t, res.OutputPath, MasterSheetName)
	assert.Equal(t, []string{"社員番号", "氏名", "フリガナ", "生年月日", "性別", "入社年月日"}, master[0])
	assert.Len(t, master, 3)
}

func TestMerge_NoKeyColumnsSkipsConsolidation(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "items.xlsx", [][]any{{"品目"}, {"りんご"}})

	core, logs := observer.New(zap.InfoLevel)
	res, err := NewMerger(cfg, zap.New(core), WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{MergedSheetName}, res.OutputSheets)
	assert.Zero(t, res.DetailRows)
	assert.Equal(t, 1, logs.FilterMessage("社員番号・氏名を含むシートがないため詳細表・マスタ表は作成しません").Len())
}

func TestMerge_SplitsOversizedSheet(t *testing.T) {
	cfg := newWorkspace(t)
	cfg.Consolidate = false
	cfg.MaxRowsPerSheet = 3
	writeInput(t, cfg, "a.xlsx", [][]any{{"氏名"}, {"1"}, {"2"}, {"3"}, {"4"}, {"5"}})

	res, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"統合", "統合_2", "統合_3"}, res.OutputSheets)
	assert.Equal(t, [][]string{{"氏名"}, {"1"}, {"2"}}, readOutput(t, res.OutputPath, "統合"))
	assert.Equal(t, [][]string{{"氏名"}, {"5"}}, readOutput(t, res.OutputPath, "統合_3"))
}

func TestMerge_EmptyInputDirectory(t *testing.T) {
	cfg := newWorkspace(t)

	_, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	assert.ErrorIs(t, err, ErrNoInputFiles)
	assert.NoDirExists(t, cfg.OutputPath())
}

func TestMerge_MissingInputDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseDir = t.TempDir()

	_, err := NewMerger(cfg, nil).Merge(context.Background())
	assert.ErrorIs(t, err, ErrInputDirMissing)
}

func TestMerge_CorruptFileFailsWithoutOutput(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "a.xlsx", [][]any{{"氏名"}, {"山田"}})
	broken := filepath.Join(cfg.InputPath(), "b.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0o644))

	_, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, reader.ErrCorruptFile)

	var fe *reader.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, broken, fe.Path)
	assert.NoFileExists(t, filepath.Join(cfg.OutputPath(), OutputFileName(runTime)))
}

func TestMerge_NeverOverwritesOutput(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "a.xlsx", [][]any{{"氏名"}, {"山田"}})

	m := NewMerger(cfg, nil, WithClock(fixedClock))
	first, err := m.Merge(context.Background())
	require.NoError(t, err)
	before := digest(t, first.OutputPath)

	_, err = m.Merge(context.Background())
	assert.ErrorIs(t, err, ErrOutputExists)
	assert.Equal(t, before, digest(t, first.OutputPath))

	later := func() time.Time { return runTime.Add(time.Second) }
	second, err := NewMerger(cfg, nil, WithClock(later)).Merge(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.OutputPath, second.OutputPath)
}

func TestMerge_InputsUntouched(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "a.xlsx", [][]any{{"社員番号", "氏名"}, {"1", "山田"}})
	path := filepath.Join(cfg.InputPath(), "a.xlsx")
	before := digest(t, path)

	_, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, digest(t, path))
}

func TestMerge_ParallelReadsKeepOrder(t *testing.T) {
	cfg := newWorkspace(t)
	cfg.Consolidate = false
	for i := 0; i < 8; i++ {
		rows := [][]any{{"社員番号"}}
		for r := 0; r < 20; r++ {
			rows = append(rows, []any{i*1000 + r})
		}
		writeInput(t, cfg, string(rune('a'+i))+".xlsx", rows)
	}

	seq, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(context.Background())
	require.NoError(t, err)

	cfg.ReadWorkers = 4
	later := func() time.Time { return runTime.Add(time.Minute) }
	par, err := NewMerger(cfg, nil, WithClock(later)).Merge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, readOutput(t, seq.OutputPath, MergedSheetName), readOutput(t, par.OutputPath, MergedSheetName))
}

func TestMerge_CanceledContext(t *testing.T) {
	cfg := newWorkspace(t)
	writeInput(t, cfg, "a.xlsx", [][]any{{"氏名"}, {"山田"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMerger(cfg, nil, WithClock(fixedClock)).Merge(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.OutputPath(), OutputFileName(runTime)))
}

func TestConcatenate_AlignsByHeaderName(t *testing.T) {
	sheets := []table.Sheet{
		{File: "a.xlsx", Name: "s1", Header: []string{"x", "y"}, Rows: [][]any{{"1", "2"}}},
		{File: "b.xlsx", Name: "s2", Header: []string{"z", "x"}, Rows: [][]any{{"3", "4"}, {"5"}}},
	}

	got := Concatenate(sheets, false)
	assert.Equal(t, []string{"x", "y", "z"}, got.Header)
	assert.Equal(t, [][]any{
		{"1", "2", nil},
		{"4", nil, "3"},
		{nil, nil, "5"},
	}, got.Rows)

	withSource := Concatenate(sheets, true)
	assert.Equal(t, []string{"x", "y", "z", SourceColumn}, withSource.Header)
	assert.Equal(t, "b.xlsx/s2", withSource.Rows[2][3])
}

func TestConcatenate_Empty(t *testing.T) {
	got := Concatenate(nil, false)
	assert.Empty(t, got.Header)
	assert.Zero(t, got.Len())
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]string{"氏名", "memo"}, [][]any{
		{"山田太郎", "a very long note that goes well past the sixty character cap set for columns"},
		{"x"},
	})
	assert.Equal(t, []float64{10, maxColWidth}, widths)
}

func digest(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}
