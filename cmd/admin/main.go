package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/storage/database"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	// set up services
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db), conf)
	clsSvc := class.NewService(sqlxrepos.NewClassRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), stdSvc, clsSvc)
	ckSvc, err := checkin.NewService(context.Background(), sqlxrepos.NewCheckinRepository(db))
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:     db,
		stdSvc: stdSvc,
		clsSvc: clsSvc,
		attSvc: attSvc,
		ckSvc:  ckSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
