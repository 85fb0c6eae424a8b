package schedule

// Field names one semantic column of a schedule.
type Field string

const (
	FieldSubject     Field = "subject"
	FieldStartDate   Field = "start_date"
	FieldStartTime   Field = "start_time"
	FieldEndDate     Field = "end_date"
	FieldEndTime     Field = "end_time"
	FieldAllDay      Field = "all_day"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
)

// Fields lists every semantic field in resolution order.
var Fields = []Field{
	FieldSubject,
	FieldStartDate,
	FieldStartTime,
	FieldEndDate,
	FieldEndTime,
	FieldAllDay,
	FieldDescription,
	FieldLocation,
}

// canonical is the fallback column name for the primary fields. Optional
// fields have no fallback and stay unresolved.
var canonical = map[Field]string{
	FieldSubject:   "Subject",
	FieldStartDate: "Start Date",
	FieldStartTime: "Start Time",
	FieldEndDate:   "End Date",
	FieldEndTime:   "End Time",
}

// CanonicalName returns the fallback column for f and whether f has one.
func CanonicalName(f Field) (string, bool) {
	name, ok := canonical[f]
	return name, ok
}

// AliasTable maps each field to its candidate column names in priority order.
type AliasTable map[Field][]string

// DefaultAliases returns the built-in English/Italian header aliases.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldSubject:     {"Subject", "Oggetto", "Titolo"},
		FieldStartDate:   {"Start Date", "Data Inizio", "Data inizio", "Data"},
		FieldStartTime:   {"Start Time", "Ora Inizio", "Ora inizio", "Ora"},
		FieldEndDate:     {"End Date", "Data Fine", "Data fine"},
		FieldEndTime:     {"End Time", "Ora Fine", "Ora fine"},
		FieldAllDay:      {"All Day Event", "Evento giornaliero", "Giornata intera"},
		FieldDescription: {"Description", "Descrizione", "Note"},
		FieldLocation:    {"Location", "Luogo", "Sede"},
	}
}

// Merge returns a copy of a where every field present in extra is prepended
// with extra's candidates. Duplicates keep their first position.
func (a AliasTable) Merge(extra AliasTable) AliasTable {
	out := make(AliasTable, len(a))
	for f, names := range a {
		out[f] = append([]string(nil), names...)
	}
	for f, names := range extra {
		seen := make(map[string]bool, len(names)+len(out[f]))
		merged := make([]string, 0, len(names)+len(out[f]))
		for _, n := range append(append([]string(nil), names...), out[f]...) {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			merged = append(merged, n)
		}
		out[f] = merged
	}
	return out
}

// FieldMap records which input column serves each field. An empty string
// means the field is unresolved.
type FieldMap map[Field]string

// Column returns the column resolved for f, or "".
func (m FieldMap) Column(f Field) string {
	return m[f]
}

// Resolved reports whether f is mapped to some column.
func (m FieldMap) Resolved(f Field) bool {
	return m[f] != ""
}

// Resolve picks, for every field, the first alias present in columns.
// Primary fields with no match fall back to their canonical name even when
// that column does not exist, so rows fail one by one in the mapper
// instead of the whole conversion aborting.
func Resolve(columns []string, aliases AliasTable) FieldMap {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	fm := make(FieldMap, len(Fields))
	for _, f := range Fields {
		fm[f] = ""
		for _, candidate := range aliases[f] {
			if _, ok := present[candidate]; ok {
				fm[f] = candidate
				break
			}
		}
		if fm[f] == "" {
			if name, ok := canonical[f]; ok {
				fm[f] = name
			}
		}
	}
	return fm
}
