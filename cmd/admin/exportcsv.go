package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trezcool/mahudhurio/core/attendance"
)

func (cli *commandLine) exportCSV(studentID, out string) error {
	if out == "" {
		out = attendance.ExportFilename(time.Now())
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := cli.attSvc.ExportCSV(context.Background(), f, studentID); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", out)
	return nil
}
