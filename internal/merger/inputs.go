package merger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// inputExtensions lists the spreadsheet types picked up from the input folder.
// .xls is listed so that legacy files fail loudly instead of being ignored.
var inputExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
	".xls":  true,
}

// ListInputFiles returns the spreadsheets directly inside dir, sorted by name.
// Sub-directories and Excel lock files (~$*) are ignored.
func ListInputFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, dir)
		}
		return nil, fmt.Errorf("stat input directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDirMissing, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if !inputExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputFiles, dir)
	}
	return files, nil
}

const (
	outputPrefix = "統合ファイル_"
	outputExt    = ".xlsx"
	stampLayout  = "20060102_150405"
)

// OutputFileName returns the merged workbook name for a run started at t.
func OutputFileName(t time.Time) string {
	return outputPrefix + t.Format(stampLayout) + outputExt
}
