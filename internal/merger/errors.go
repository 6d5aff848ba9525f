package merger

import "errors"

var (
	// ErrInputDirMissing means the input folder does not exist or is not a directory.
	ErrInputDirMissing = errors.New("input directory not found")
	// ErrNoInputFiles means the input folder holds no spreadsheet to merge.
	ErrNoInputFiles = errors.New("no Excel files in input directory")
	// ErrOutputExists means a workbook with the generated name is already present.
	ErrOutputExists = errors.New("output file already exists")
	// ErrOutputWrite means the output workbook could not be created or saved.
	ErrOutputWrite = errors.New("cannot write output file")
)
