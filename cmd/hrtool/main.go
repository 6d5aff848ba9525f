package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/ryabkov82/hrtool/internal/config"
	"github.com/ryabkov82/hrtool/internal/logging"
	"github.com/ryabkov82/hrtool/internal/merger"
	"github.com/ryabkov82/hrtool/internal/prompt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Output is the --json report printed to stdout.
type Output struct {
	Success     bool     `json:"success"`
	Cancelled   bool     `json:"cancelled,omitempty"`
	OutputFiles []string `json:"output_files,omitempty"`
	LogFile     string   `json:"log_file,omitempty"`
	Error       string   `json:"error,omitempty"`
	Duration    string   `json:"duration"`
	RowCount    int      `json:"row_count,omitempty"`
}

type confirmFunc func(in io.Reader, out io.Writer, question string) (bool, error)

type options struct {
	dir        string
	configPath string
	assumeYes  bool
	jsonOut    bool
	verbose    bool
	addSource  bool
	workers    int

	confirm confirmFunc
	now     func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(prompt.Confirm, time.Now).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(confirm confirmFunc, now func() time.Time) *cobra.Command {
	opts := &options{confirm: confirm, now: now}

	rootCmd := &cobra.Command{
		Use:   "hrtool",
		Short: "Merge every Excel file in input/ into one workbook in output/",
		Long: `hrtool reads every workbook in the input folder, stacks the rows of all
sheets into one table aligned by column name, builds the per-employee
詳細 and マスタ tables, and writes output/統合ファイル_YYYYMMDD_HHMMSS.xlsx.

Each confirmed run writes 処理ログ_YYYYMMDD_HHMMSS.txt next to the folders.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.dir, "dir", "d", "", "installation root holding input/ and output/ (default: working directory)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: <dir>/"+config.FileName+")")
	flags.BoolVarP(&opts.assumeYes, "yes", "y", false, "skip the confirmation prompt")
	flags.BoolVar(&opts.jsonOut, "json", false, "print a JSON report to stdout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug details")
	flags.BoolVar(&opts.addSource, "add-source", false, "append a "+merger.SourceColumn+" column naming the source file and sheet")
	flags.IntVar(&opts.workers, "workers", 0, "files read in parallel (overrides read_workers)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "hrtool", version)
		},
	})

	return rootCmd
}

func run(cmd *cobra.Command, opts *options) error {
	start := opts.now()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		emit(cmd, opts, Output{Error: fmt.Sprintf("設定エラー: %v", err), Duration: time.Since(start).String()})
		return err
	}

	console := logging.NewConsole(cmd.ErrOrStderr(), opts.verbose)
	defer func() { _ = console.Sync() }()

	if !opts.assumeYes {
		ok, err := opts.confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt.DefaultQuestion)
		if err != nil {
			err = fmt.Errorf("confirmation prompt: %w", err)
			emit(cmd, opts, Output{Error: err.Error(), Duration: time.Since(start).String()})
			return err
		}
		if !ok {
			console.Info("ユーザーがキャンセルしました")
			emit(cmd, opts, Output{Cancelled: true, Duration: time.Since(start).String()})
			return nil
		}
	}

	runStart := opts.now()
	rl, err := logging.Open(logging.Options{
		Dir:      cfg.LogPath(),
		Encoding: cfg.LogEncoding,
		Verbose:  opts.verbose,
		Console:  cmd.ErrOrStderr(),
		Now:      runStart,
	})
	if err != nil {
		emit(cmd, opts, Output{Error: err.Error(), Duration: time.Since(start).String()})
		return err
	}
	defer rl.Close()

	rl.Info("HRTool起動",
		zap.String("version", version),
		zap.String("開始時刻", runStart.Format("2006/01/02 15:04:05")),
		zap.String("ログファイル", filepath.Base(rl.Path)),
	)

	m := merger.NewMerger(cfg, rl.Logger, merger.WithClock(opts.now))
	res, err := m.Merge(cmd.Context())
	if err != nil {
		rl.Error("=== エラー発生 ===", zap.Error(err))
		emit(cmd, opts, Output{Error: err.Error(), LogFile: rl.Path, Duration: time.Since(start).String()})
		return err
	}

	rl.Info("=== 処理完了 ===",
		zap.String("output", res.OutputPath),
		zap.Int("rows", res.Rows),
		zap.Int("detail_rows", res.DetailRows),
		zap.Duration("elapsed", res.Duration),
	)

	if !opts.jsonOut {
		fmt.Fprintf(cmd.OutOrStdout(), "処理が完了しました\n出力ファイル: %s\n", res.OutputPath)
	}
	emit(cmd, opts, Output{
		Success:     true,
		OutputFiles: []string{res.OutputPath},
		LogFile:     rl.Path,
		RowCount:    res.Rows,
		Duration:    time.Since(start).String(),
	})
	return nil
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	base := opts.dir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		base = wd
	}

	path := opts.configPath
	if path == "" {
		path = filepath.Join(base, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = base

	flags := cmd.Flags()
	if flags.Changed("add-source") {
		cfg.AddSourceFile = opts.addSource
	}
	if flags.Changed("workers") {
		cfg.ReadWorkers = opts.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func emit(cmd *cobra.Command, opts *options, out Output) {
	if !opts.jsonOut {
		return
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
