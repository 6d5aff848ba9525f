// Package logging writes the per-run log file 処理ログ_<timestamp>.txt and
// mirrors every entry to the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	filePrefix = "処理ログ_"
	timeLayout = "2006/01/02 15:04:05"
)

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format("20060102_150405") + ".txt"
}

// Options configures Open.
type Options struct {
	Dir      string
	Encoding string // "cp932" or "utf-8"
	Verbose  bool
	Console  io.Writer // defaults to os.Stderr; io.Discard silences it
	Now      time.Time
}

// RunLog is the logger of one run together with its backing file.
type RunLog struct {
	*zap.Logger
	Path  string
	RunID string

	closers []io.Closer
}

// Open creates (or appends to) the run log and returns a logger that writes
// to it and to the console.
func Open(opts Options) (*RunLog, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName(opts.Now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	rl := &RunLog{Path: path, RunID: uuid.NewString()}

	var sink io.Writer = f
	if opts.Encoding != "utf-8" {
		// Notepad on Japanese Windows opens cp932 by default.
		w := transform.NewWriter(f, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		sink = w
		rl.closers = append(rl.closers, w)
	}
	rl.closers = append(rl.closers, f)

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(sink)), level),
		zapcore.NewCore(enc.Clone(), zapcore.Lock(zapcore.AddSync(opts.Console)), level),
	)
	rl.Logger = zap.New(core).With(zap.String("run_id", rl.RunID))
	return rl, nil
}

// Close flushes the logger and releases the log file.
func (r *RunLog) Close() error {
	if r == nil {
		return nil
	}
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// NewConsole returns a console-only logger, used before the run log exists.
func NewConsole(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " | ",
	}
}
