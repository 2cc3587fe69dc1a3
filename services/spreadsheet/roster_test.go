package spreadsheetsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ing-la/future-navigator/core/student"
)

func makeSheet(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadRoster(t *testing.T) {
	t.Run("columns matched by name", func(t *testing.T) {
		buf := makeSheet(t,
			[]interface{}{"Student Number", "Name"},
			[]interface{}{"S-001", " Alice "},
			[]interface{}{"S-002", ""},
			[]interface{}{"", "Bob"},
		)
		rows, err := ReadRoster(buf)
		require.NoError(t, err)
		assert.Equal(t, []student.ImportRow{
			{Name: "Alice", StudentNumber: "S-001"},
			{Name: "", StudentNumber: "S-002"},
			{Name: "Bob"},
		}, rows)
	})

	t.Run("missing name column", func(t *testing.T) {
		buf := makeSheet(t, []interface{}{"student_number"}, []interface{}{"S-001"})
		_, err := ReadRoster(buf)
		assert.Equal(t, ErrNoNameCol, err)
	})

	t.Run("empty sheet", func(t *testing.T) {
		_, err := ReadRoster(makeSheet(t))
		assert.Equal(t, ErrEmptySheet, err)
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		_, err := ReadRoster(bytes.NewBufferString("name,student_number\nAlice,1\n"))
		assert.Error(t, err)
	})
}

func TestWriteRoster(t *testing.T) {
	students := []student.Student{
		{Name: "Alice", StudentNumber: "S-001", AvatarURL: "https://img.example.com/a.png"},
		{Name: "Bob"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, students))

	rows, err := ReadRoster(&buf)
	require.NoError(t, err)
	assert.Equal(t, []student.ImportRow{
		{Name: "Alice", StudentNumber: "S-001", AvatarURL: "https://img.example.com/a.png"},
		{Name: "Bob"},
	}, rows)
}
