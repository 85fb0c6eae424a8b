package schedule

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an upload's file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// xlsxDatePattern renders the workbook's built-in short date cells day-first,
// the way the mapper reads them.
const xlsxDatePattern = "dd/mm/yyyy"

// FormatOf picks the format from a file name's extension. Anything that is
// not an Excel workbook is read as CSV.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/"))) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Extension returns the file extension, with the dot, for f.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

// ReadTable reads r in the given format.
func ReadTable(r io.Reader, f Format) (*Table, error) {
	if f == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// ReadXLSX reads the first worksheet of an Excel workbook. The first row is
// the header, handled like ReadCSV's: trimmed and deduplicated. Blank rows
// are skipped; cell values are the formatted text Excel shows, with short
// dates written day-first.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r, excelize.Options{ShortDatePattern: xlsxDatePattern})
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: sheet %q: %w", sheets[0], err)
	}

	var t *Table
	for _, rec := range records {
		if blankRecord(rec) {
			continue
		}
		if t == nil {
			t = &Table{Columns: dedupeHeader(rec)}
			continue
		}
		t.appendRecord(rec)
	}
	if t == nil {
		return nil, ErrEmptyInput
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
