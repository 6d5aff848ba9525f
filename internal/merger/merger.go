// Package merger implements the Excel merge run: it collects the workbooks of
// the input folder, concatenates their sheets and writes one timestamped
// workbook to the output folder.
package merger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ryabkov82/hrtool/internal/columns"
	"github.com/ryabkov82/hrtool/internal/config"
	"github.com/ryabkov82/hrtool/internal/consolidate"
	"github.com/ryabkov82/hrtool/internal/reader"
	"github.com/ryabkov82/hrtool/internal/table"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sheet names of the output workbook.
const (
	MergedSheetName = "統合"
	DetailSheetName = "詳細"
	MasterSheetName = "マスタ"
)

// FileMerger runs one merge.
type FileMerger interface {
	Merge(ctx context.Context) (*Result, error)
}

// Result summarizes a successful run.
type Result struct {
	OutputPath   string
	Files        []string
	Sheets       int      // input sheets with data
	Rows         int      // rows in the merged table, header excluded
	DetailRows   int      // rows in 詳細, zero when consolidation was skipped
	KeyedSheets  int      // input sheets that fed 詳細
	OutputSheets []string // sheets of the output workbook in order
	Duration     time.Duration
}

var _ FileMerger = (*Merger)(nil)

// Option customizes a Merger.
type Option func(*Merger)

// WithClock replaces time.Now, which names the output file.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		if now != nil {
			m.now = now
		}
	}
}

// Merger is the FileMerger used by the command.
type Merger struct {
	cfg      *config.Config
	log      *zap.Logger
	now      func() time.Time
	readOpts reader.Options
}

// NewMerger builds a merger for cfg. A nil logger discards output.
func NewMerger(cfg *config.Config, logger *zap.Logger, opts ...Option) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Merger{
		cfg: cfg,
		log: logger,
		now: time.Now,
		readOpts: reader.DefaultOptions(),
	}
	if len(cfg.Synonyms) > 0 {
		m.readOpts.Catalog = columns.NewCatalog(cfg.Synonyms)
	}
	if cfg.HeaderScanRows > 0 {
		m.readOpts.HeaderScanRows = cfg.HeaderScanRows
	}
	m.readOpts.GenericHeader = cfg.HeaderFallback == config.HeaderFallbackGeneric
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge performs read → merge → write. Input files are never modified; the
// run stops at the first error and leaves no output file behind.
func (m *Merger) Merge(ctx context.Context) (*Result, error) {
	started := m.now()
	clock := time.Now()

	files, err := ListInputFiles(m.cfg.InputPath())
	if err != nil {
		return nil, err
	}
	m.log.Info("選択ファイル数", zap.Int("files", len(files)), zap.String("input", m.cfg.InputPath()))

	books, err := m.readAll(ctx, files)
	if err != nil {
		return nil, err
	}

	var sheets []table.Sheet
	for _, wb := range books {
		for _, name := range wb.Empty {
			m.log.Debug("空シートをスキップ", zap.String("file", filepath.Base(wb.Path)), zap.String("sheet", name))
		}
		for i := range wb.Sheets {
			s := wb.Sheets[i]
			m.log.Info("シートを追加しました",
				zap.String("source", s.Source()),
				zap.Int("rows", len(s.Rows)),
				zap.Int("columns", len(s.Header)),
				zap.Bool("header_detected", wb.HeaderFound[i]),
			)
		}
		sheets = append(sheets, wb.Sheets...)
	}
	m.log.Info("ファイル読み込み完了", zap.Int("sheets", len(sheets)))

	merged := Concatenate(sheets, m.cfg.AddSourceFile)
	m.log.Info("結合後の行数", zap.Int("rows", merged.Len()), zap.Int("columns", len(merged.Header)))

	var cons *consolidate.Result
	if m.cfg.Consolidate {
		cons = consolidate.Build(sheets, m.log)
		if cons == nil {
			m.log.Warn("社員番号・氏名を含むシートがないため詳細表・マスタ表は作成しません")
		} else {
			m.log.Info("グローバルマスタ構築完了",
				zap.Int("sheets", cons.Used),
				zap.Int("所属", len(cons.Masters.Dept)),
				zap.Int("資格", len(cons.Masters.Grade)),
				zap.Int("職位", len(cons.Masters.Position)),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outPath, outSheets, err := m.write(merged, cons, started)
	if err != nil {
		return nil, err
	}
	m.log.Info("出力ファイル", zap.String("path", outPath), zap.Strings("sheets", outSheets))

	res := &Result{
		OutputPath:   outPath,
		Files:        files,
		Sheets:       len(sheets),
		Rows:         merged.Len(),
		OutputSheets: outSheets,
		Duration:     time.Since(clock),
	}
	if cons != nil {
		res.DetailRows = cons.Detail.Len()
		res.KeyedSheets = cons.Used
	}
	return res, nil
}

// readAll reads the files with at most cfg.ReadWorkers in flight. Results are
// kept in input order regardless of completion order.
func (m *Merger) readAll(ctx context.Context, files []string) ([]*reader.Workbook, error) {
	books := make([]*reader.Workbook, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.cfg.ReadWorkers, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m.log.Info("ファイル読み込み",
				zap.Int("index", i+1),
				zap.Int("total", len(files)),
				zap.String("file", filepath.Base(path)),
			)
			wb, err := reader.ReadWorkbook(path, m.readOpts)
			if err != nil {
				return err
			}
			books[i] = wb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}

type namedTable struct {
	name string
	t    *table.Table
}

// write builds the output workbook in memory and stores it under a fresh
// name. An existing file is never overwritten.
func (m *Merger) write(merged *table.Table, cons *consolidate.Result, started time.Time) (string, []string, error) {
	outDir := m.cfg.OutputPath()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	path := filepath.Join(outDir, OutputFileName(started))

	book := excelize.NewFile()
	defer book.Close()

	bw, err := newBookWriter(book, m.cfg.MaxRowsPerSheet)
	if err != nil {
		return "", nil, err
	}

	tables := []namedTable{{MergedSheetName, merged}}
	if cons != nil {
		tables = append(tables, namedTable{DetailSheetName, cons.Detail}, namedTable{MasterSheetName, cons.Master})
	}
	for _, tt := range tables {
		names, err := bw.WriteTable(tt.name, tt.t)
		if err != nil {
			return "", nil, err
		}
		if len(names) > 1 {
			m.log.Info("行数上限によりシートを分割", zap.String("sheet", tt.name), zap.Strings("parts", names))
		}
	}
	book.SetActiveSheet(0)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return "", nil, fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if _, err := book.WriteTo(out); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}

	return path, bw.sheets, nil
}
