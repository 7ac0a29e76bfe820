package main

import (
	"context"
	"fmt"

	"github.com/trezcool/mahudhurio/core/student"
)

// addStudent enrolls a new student.Student
func (cli *commandLine) addStudent(name, belt, status string) error {
	ns := student.NewStudent{
		Name:             name,
		BeltLevel:        belt,
		MembershipStatus: status,
	}
	if err := ns.Validate(newValidator()); err != nil {
		return err
	}

	std, err := cli.stdSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Printf("student created: %s (%s)\n", std.Name, std.ID)
	return nil
}
