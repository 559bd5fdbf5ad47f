package spreadsheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}

	path := filepath.Join(t.TempDir(), "upload.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseRowsWithHeader(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Name", "Profile URL", "Notes"},
		{"Alice", "https://example.com/in/alice", "priority"},
		{"Bob", "not-a-url", ""},
		{"Carol", "https://example.com/in/carol", ""},
	})

	rows, err := NewReader().ParseRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2, "rows without an http url are skipped")

	assert.Equal(t, "https://example.com/in/alice", rows[0].URL)
	assert.Equal(t, 1, rows[0].RowIndex)
	assert.Equal(t, "Alice", rows[0].Extra["Name"])
	assert.Equal(t, "priority", rows[0].Extra["Notes"])

	assert.Equal(t, "https://example.com/in/carol", rows[1].URL)
	assert.Equal(t, 3, rows[1].RowIndex)
	assert.NotContains(t, rows[1].Extra, "Notes")
}

func TestParseRowsHeaderless(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"https://example.com/in/alice"},
		{"https://example.com/in/bob"},
	})

	rows, err := NewReader().ParseRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2, "a sheet without a recognized header starts at row one")
	assert.Equal(t, "https://example.com/in/alice", rows[0].URL)
	assert.Equal(t, 0, rows[0].RowIndex)
	assert.Nil(t, rows[0].Extra)
}

func TestParseRowsEmptyWorkbook(t *testing.T) {
	path := writeWorkbook(t, nil)

	rows, err := NewReader().ParseRows(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseRowsMissingFile(t *testing.T) {
	_, err := NewReader().ParseRows(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}

func TestWriteArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "results"))

	path, err := w.WriteArtifact("job_1_all.xlsx",
		[]string{"URL", "Status"},
		[][]string{
			{"https://example.com/in/alice", "success"},
			{"https://example.com/in/bob", "failed"},
		})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results", "job_1_all.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Results", f.GetSheetName(0))
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"URL", "Status"}, rows[0])
	assert.Equal(t, []string{"https://example.com/in/alice", "success"}, rows[1])
}

func TestWriteArtifactReadableByReader(t *testing.T) {
	w := NewWriter(t.TempDir())

	path, err := w.WriteArtifact("export.xlsx",
		[]string{"URL", "Status"},
		[][]string{{"https://example.com/in/alice", "success"}})
	require.NoError(t, err)

	rows, err := NewReader().ParseRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://example.com/in/alice", rows[0].URL)
	assert.Equal(t, "success", rows[0].Extra["Status"])
}
