// Package schedule holds the normalized schedule table, the column resolver
// that maps loosely named headers onto semantic fields, and CSV intake/output.
package schedule

import "strings"

// Row is one schedule entry keyed by column name.
type Row map[string]string

// Table is a normalized schedule: ordered columns plus rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// missingTokens are the exact spellings a dataframe writes for empty
// cells. Matching is case-sensitive so real values such as "NA" (a province
// code) or "None" typed by hand in another case survive.
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"NaN":  {},
	"-nan": {},
	"None": {},
	"NaT":  {},
	"<NA>": {},
}

// IsMissing reports whether a raw cell value carries no data.
func IsMissing(v string) bool {
	_, ok := missingTokens[strings.TrimSpace(v)]
	return ok
}

// Lookup returns the cell for col. present is false when the row has no such
// column at all; ok is false when the column is absent or the value is missing.
func (r Row) Lookup(col string) (value string, present bool, ok bool) {
	if col == "" {
		return "", false, false
	}
	v, present := r[col]
	if !present {
		return "", false, false
	}
	if IsMissing(v) {
		return v, true, false
	}
	return v, true, true
}

// Get returns the trimmed value for col, or "" when it is absent or missing.
func (r Row) Get(col string) string {
	v, _, ok := r.Lookup(col)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Filter returns a new table with the same columns and only the rows for
// which keep returns true. Rows are shared, not copied.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
