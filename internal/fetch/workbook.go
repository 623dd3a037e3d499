package fetch

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"papersum/internal/services"
)

// Required header cells, matched exactly after trimming.
const (
	headerTitle = "Title"
	headerYear  = "Year"
	headerLink  = "Link"
)

// Entry is one data row of the workbook. Row is the 1-based spreadsheet row.
type Entry struct {
	Row   int
	Title string
	Year  string
	Link  string
}

// ReadWorkbook reads every data row of sheet (the active sheet when empty).
// The first row must carry Title, Year, and Link headers in any order.
func ReadWorkbook(path, sheet string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Configuration("open workbook %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	if strings.TrimSpace(sheet) == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, services.Configuration("read sheet %q: %v", sheet, err)
	}
	if len(rows) == 0 {
		return nil, services.Configuration("sheet %q is empty", sheet)
	}

	columns, err := locateHeaders(rows[0])
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		entries = append(entries, Entry{
			Row:   i + 2,
			Title: cell(row, columns[headerTitle]),
			Year:  cell(row, columns[headerYear]),
			Link:  cell(row, columns[headerLink]),
		})
	}
	return entries, nil
}

func locateHeaders(header []string) (map[string]int, error) {
	columns := map[string]int{}
	for idx, value := range header {
		name := strings.TrimSpace(value)
		if _, seen := columns[name]; !seen {
			columns[name] = idx
		}
	}
	var missing []string
	for _, name := range []string{headerTitle, headerYear, headerLink} {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, services.Configuration("workbook header missing %s column(s)", strings.Join(missing, ", "))
	}
	return columns, nil
}

// cell returns the trimmed value at idx; rows shorter than idx yield "".
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// String renders an entry for log lines.
func (e Entry) String() string {
	return fmt.Sprintf("row %d (%s)", e.Row, e.Title)
}
