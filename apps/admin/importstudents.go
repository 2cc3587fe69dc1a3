package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	spreadsheetsvc "github.com/Ing-la/future-navigator/services/spreadsheet"
)

func (cli *commandLine) importStudents(classID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer f.Close()

	rows, err := spreadsheetsvc.ReadRoster(f)
	if err != nil {
		return err
	}
	res, err := cli.studentSvc.Import(context.Background(), classID, rows)
	if err != nil {
		return err
	}

	fmt.Printf("%d student(s) imported\n", len(res.Created))
	if len(res.Skipped) > 0 {
		fmt.Printf("rows without a name were skipped: %v\n", res.Skipped)
	}
	return nil
}
