package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when the CSV has no header row.
var ErrEmptyInput = errors.New("empty file: no header row")

// ReadCSV parses a comma-separated schedule with a header row.
//
// Header cells are trimmed; duplicate headers get ".1", ".2", ... suffixes
// so no column is silently overwritten. Short rows are padded with empty
// cells and extra cells beyond the header are dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(newTextReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: read header: %w", err)
	}

	t := &Table{Columns: dedupeHeader(header)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: read row %d: %w", line, err)
		}
		t.appendRecord(rec)
	}
	return t, nil
}

// appendRecord adds rec as a row, padding short records with empty cells
// and dropping cells beyond the header.
func (t *Table) appendRecord(rec []string) {
	row := make(Row, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(rec) {
			row[col] = rec[i]
		} else {
			row[col] = ""
		}
	}
	t.Rows = append(t.Rows, row)
}

func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := seen[name]; dup {
			base := name
			for {
				seen[base]++
				name = base + "." + strconv.Itoa(seen[base])
				if _, taken := seen[name]; !taken {
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// WriteCSV writes t with a header row followed by one record per row.
// Missing cells are written as empty strings.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			v, _, ok := row.Lookup(col)
			if !ok {
				v = ""
			}
			rec[j] = v
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVString renders t with WriteCSV.
func CSVString(t *Table) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, t); err != nil {
		return "", err
	}
	return b.String(), nil
}
