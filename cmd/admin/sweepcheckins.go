package main

import (
	"context"
	"fmt"
	"time"
)

// sweepCheckins runs one auto-checkout pass; the API server normally does
// this periodically, this is for one-off maintenance.
func (cli *commandLine) sweepCheckins() error {
	n, err := cli.ckSvc.SweepAutoCheckout(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("auto-checkout closed %d session(s)\n", n)
	return nil
}
