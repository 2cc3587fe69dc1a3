package spreadsheetsvc

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Ing-la/future-navigator/core/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	rosterSheet = "Roster"

	colName          = "name"
	colStudentNumber = "student_number"
	colAvatarURL     = "avatar_url"
)

var (
	// errors
	ErrNoSheet    = errors.New("spreadsheet does not contain any sheet")
	ErrNoNameCol  = errors.New("spreadsheet header must contain a name column")
	ErrEmptySheet = errors.New("spreadsheet is empty")

	RosterHeader = []string{colName, colStudentNumber, colAvatarURL}
)

// ReadRoster reads students from the first sheet of an xlsx file.
// The first row is the header; columns are matched by name so their order does not matter.
func ReadRoster(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	cols := map[string]int{colName: -1, colStudentNumber: -1, colAvatarURL: -1}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, " ", "_")
		if idx, ok := cols[h]; ok && idx < 0 {
			cols[h] = i
		}
	}
	if cols[colName] < 0 {
		return nil, ErrNoNameCol
	}

	cell := func(row []string, col string) string {
		i := cols[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	roster := make([]student.ImportRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		roster = append(roster, student.ImportRow{
			Name:          cell(row, colName),
			StudentNumber: cell(row, colStudentNumber),
			AvatarURL:     cell(row, colAvatarURL),
		})
	}
	return roster, nil
}

// WriteRoster writes students as an xlsx file that ReadRoster can import back.
func WriteRoster(w io.Writer, students []student.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &RosterHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, std := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{std.Name, std.StudentNumber, std.AvatarURL}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	_, err := f.WriteTo(w)
	return errors.Wrap(err, "writing spreadsheet")
}
