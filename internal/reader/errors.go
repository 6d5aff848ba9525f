package reader

import (
	"errors"
	"fmt"
)

// ErrCorruptFile indicates the workbook could not be opened or parsed.
var ErrCorruptFile = errors.New("corrupt or unreadable workbook")

// ErrUnsupportedFormat indicates a spreadsheet format that cannot be read (.xls).
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// FileError ties a read failure to the workbook and, if known, the sheet.
type FileError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *FileError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s (sheet %q): %v", e.Path, e.Sheet, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
