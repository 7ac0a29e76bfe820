package main

import (
	"context"

	"github.com/trezcool/mahudhurio/core/student"
)

func (cli *commandLine) assignPin(studentID, pin string) error {
	ap := student.AssignPIN{
		StudentID: studentID,
		PIN:       pin,
	}
	if err := ap.Validate(newValidator()); err != nil {
		return err
	}

	_, err := cli.stdSvc.SetPIN(context.Background(), ap)
	return err
}
