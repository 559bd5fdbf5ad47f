package spreadsheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"prospector/internal/models"
)

// Reader extracts profile rows from uploaded xlsx workbooks
type Reader struct{}

// NewReader creates a new Reader
func NewReader() *Reader {
	return &Reader{}
}

// ParseRows reads the workbook's first sheet and returns one row per
// non-empty profile URL. The URL column is located from the header row;
// a sheet without a recognizable header is treated as headerless with
// URLs in column A. Cells from other headed columns are carried along
// as extra row data.
func (r *Reader) ParseRows(path string) ([]models.ProfileRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	urlCol, headers, start := locateURLColumn(rows[0])

	var out []models.ProfileRow
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if urlCol >= len(row) {
			continue
		}
		url := strings.TrimSpace(row[urlCol])
		if !strings.HasPrefix(url, "http") {
			continue
		}

		var extra map[string]string
		for c, v := range row {
			if c == urlCol || c >= len(headers) || headers[c] == "" || strings.TrimSpace(v) == "" {
				continue
			}
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[headers[c]] = strings.TrimSpace(v)
		}

		out = append(out, models.ProfileRow{URL: url, RowIndex: i, Extra: extra})
	}

	return out, nil
}

// urlHeaders are the header names accepted as the profile URL column
var urlHeaders = map[string]bool{
	"url":          true,
	"profile url":  true,
	"profile_url":  true,
	"profile":      true,
	"link":         true,
	"linkedin url": true,
	"linkedin":     true,
}

func locateURLColumn(header []string) (col int, headers []string, firstDataRow int) {
	for c, h := range header {
		if urlHeaders[strings.ToLower(strings.TrimSpace(h))] {
			return c, header, 1
		}
	}
	return 0, nil, 0
}
