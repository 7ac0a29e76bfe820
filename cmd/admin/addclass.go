package main

import (
	"context"
	"fmt"

	"github.com/trezcool/mahudhurio/core/class"
)

func (cli *commandLine) addClass(ns class.NewSession) error {
	if err := ns.Validate(newValidator()); err != nil {
		return err
	}

	sess, err := cli.clsSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Printf("class created: %s (%s)\n", sess.Name, sess.ID)
	return nil
}

func (cli *commandLine) reserve(studentID, classID string) error {
	ctx := context.Background()
	if _, err := cli.stdSvc.GetByID(ctx, studentID); err != nil {
		return err
	}
	_, err := cli.clsSvc.Reserve(ctx, studentID, classID)
	return err
}
