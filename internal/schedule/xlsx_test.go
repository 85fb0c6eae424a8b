package schedule

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory .xlsx whose first sheet holds rows from A1.
func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadXLSX(t *testing.T) {
	buf := workbook(t,
		[]any{" Oggetto ", "Data Inizio", "Ora Inizio", "Note", "Note"},
		[]any{"Mattina", "01/03/2024", "08:00", "a", "b"},
		[]any{},
		[]any{"Ferie", "02/03/2024"},
		[]any{"Riposo", "03/03/2024", "", "", "", "extra"},
	)

	tbl, err := ReadXLSX(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oggetto", "Data Inizio", "Ora Inizio", "Note", "Note.1"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, Row{"Oggetto": "Mattina", "Data Inizio": "01/03/2024", "Ora Inizio": "08:00", "Note": "a", "Note.1": "b"}, tbl.Rows[0])
	assert.Equal(t, "", tbl.Rows[1]["Ora Inizio"])
	assert.Equal(t, "Riposo", tbl.Rows[2]["Oggetto"])
	assert.Len(t, tbl.Rows[2], 5)
}

func TestReadXLSX_DateCellsAreDayFirst(t *testing.T) {
	buf := workbook(t,
		[]any{"Subject", "Start Date", "Start", "All Day Event"},
		[]any{"Notte", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC), 1},
	)

	tbl, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "04/03/2024", tbl.Rows[0]["Start Date"])
	assert.Equal(t, "04/03/2024 22:00", tbl.Rows[0]["Start"])
	assert.Equal(t, "1", tbl.Rows[0]["All Day Event"])
}

func TestReadXLSX_Errors(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("Subject,Start Date\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid xlsx")

	_, err = ReadXLSX(workbook(t))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"turni.xlsx", FormatXLSX},
		{"TURNI.XLSX", FormatXLSX},
		{"macro.xlsm", FormatXLSX},
		{`C:\Users\me\turni.xlsx`, FormatXLSX},
		{"turni.csv", FormatCSV},
		{"turni", FormatCSV},
		{"", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOf(tt.name))
		})
	}
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
	assert.Equal(t, ".csv", FormatCSV.Extension())
}

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(workbook(t, []any{"Subject"}, []any{"Mattina"}), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Mattina", tbl.Rows[0]["Subject"])

	tbl, err = ReadTable(strings.NewReader("Subject\nSera\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Sera", tbl.Rows[0]["Subject"])
}
