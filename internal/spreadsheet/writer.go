package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Writer persists tabular artifacts as xlsx workbooks in a fixed directory
type Writer struct {
	dir string
}

// NewWriter creates a Writer storing artifacts under dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteArtifact writes a single-sheet workbook with the given header and
// rows and returns the file path
func (w *Writer) WriteArtifact(name string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return "", err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return "", err
		}
	}

	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return path, nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
