package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional config file looked up in the base directory.
const FileName = "hrtool.yaml"

// Header fallback policies used when no known column name is found in a sheet.
const (
	HeaderFallbackFirstRow = "first_row"
	HeaderFallbackGeneric  = "generic"
)

// Log file encodings.
const (
	EncodingCP932 = "cp932"
	EncodingUTF8  = "utf-8"
)

// ExcelMaxRows is the row limit of a single worksheet.
const ExcelMaxRows = 1048576

type Config struct {
	// BaseDir is the installation root that relative paths are resolved against.
	BaseDir string `yaml:"-"`

	InputDir    string `yaml:"input_dir"`
	OutputDir   string `yaml:"output_dir"`
	LogDir      string `yaml:"log_dir"`
	LogEncoding string `yaml:"log_encoding"`

	AddSourceFile   bool   `yaml:"add_source"`         // append a __source__ column to the merged sheet
	HeaderScanRows  int    `yaml:"header_scan_rows"`   // rows scanned for a header per sheet
	HeaderFallback  string `yaml:"header_fallback"`    // first_row | generic
	MaxRowsPerSheet int    `yaml:"max_rows_per_sheet"` // header row included
	ReadWorkers     int    `yaml:"read_workers"`
	Consolidate     bool   `yaml:"consolidate"` // build the 詳細 / マスタ sheets

	// Synonyms adds extra accepted header names per canonical column.
	Synonyms map[string][]string `yaml:"synonyms"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:         ".",
		InputDir:        "input",
		OutputDir:       "output",
		LogDir:          ".",
		LogEncoding:     EncodingCP932,
		HeaderScanRows:  50,
		HeaderFallback:  HeaderFallbackFirstRow,
		MaxRowsPerSheet: ExcelMaxRows,
		ReadWorkers:     1,
		Consolidate:     true,
	}
}

// Load reads a YAML config on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("input_dir must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	switch c.LogEncoding {
	case EncodingCP932, EncodingUTF8:
	default:
		return fmt.Errorf("log_encoding: unsupported value %q (cp932, utf-8)", c.LogEncoding)
	}
	switch c.HeaderFallback {
	case HeaderFallbackFirstRow, HeaderFallbackGeneric:
	default:
		return fmt.Errorf("header_fallback: unsupported value %q (first_row, generic)", c.HeaderFallback)
	}
	if c.HeaderScanRows < 1 {
		return fmt.Errorf("header_scan_rows must be positive, got %d", c.HeaderScanRows)
	}
	if c.MaxRowsPerSheet < 2 || c.MaxRowsPerSheet > ExcelMaxRows {
		return fmt.Errorf("max_rows_per_sheet must be between 2 and %d, got %d", ExcelMaxRows, c.MaxRowsPerSheet)
	}
	if c.ReadWorkers < 1 {
		return fmt.Errorf("read_workers must be positive, got %d", c.ReadWorkers)
	}
	return nil
}

// Resolve returns path joined to BaseDir unless it is already absolute.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(c.BaseDir, path))
}

func (c *Config) InputPath() string  { return c.Resolve(c.InputDir) }
func (c *Config) OutputPath() string { return c.Resolve(c.OutputDir) }
func (c *Config) LogPath() string    { return c.Resolve(c.LogDir) }
