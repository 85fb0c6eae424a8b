package convert

import (
	"context"
	"fmt"
	"strings"

	"shiftcal/internal/schedule"
)

// Transformer turns the raw uploaded table into the normalized schedule
// for one person. Implementations are compiled in and selected by name.
type Transformer interface {
	Transform(ctx context.Context, raw *schedule.Table, surname string) (*schedule.Table, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(ctx context.Context, raw *schedule.Table, surname string) (*schedule.Table, error)

func (f TransformerFunc) Transform(ctx context.Context, raw *schedule.Table, surname string) (*schedule.Table, error) {
	return f(ctx, raw, surname)
}

// Passthrough treats the upload as already normalized.
type Passthrough struct{}

func (Passthrough) Transform(_ context.Context, raw *schedule.Table, _ string) (*schedule.Table, error) {
	return raw, nil
}

// DefaultPersonColumns are the headers searched by SurnameFilter.
var DefaultPersonColumns = []string{"Cognome", "Surname", "Nome", "Name", "Dipendente", "Employee"}

// SurnameFilter keeps the rows whose person column contains the surname,
// ignoring case. The first of Columns present in the table is used.
type SurnameFilter struct {
	Columns []string
}

func (f SurnameFilter) Transform(ctx context.Context, raw *schedule.Table, surname string) (*schedule.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := f.Columns
	if len(cols) == 0 {
		cols = DefaultPersonColumns
	}

	col := ""
	for _, c := range cols {
		if raw.HasColumn(c) {
			col = c
			break
		}
	}
	if col == "" {
		return nil, fmt.Errorf("%w: no person column (tried %s)", ErrPersonNotFound, strings.Join(cols, ", "))
	}

	needle := strings.ToLower(strings.TrimSpace(surname))
	out := raw.Filter(func(r schedule.Row) bool {
		return needle != "" && strings.Contains(strings.ToLower(r.Get(col)), needle)
	})
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPersonNotFound, surname)
	}
	return out, nil
}

// TransformerByName returns the built-in transformer called name.
// An empty name selects Passthrough.
func TransformerByName(name string, personColumns []string) (Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "passthrough":
		return Passthrough{}, nil
	case "surname":
		return SurnameFilter{Columns: personColumns}, nil
	default:
		return nil, fmt.Errorf("unknown transformer %q", name)
	}
}
