package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

type (
	DB struct {
		student     *studentTable
		class       *classTable
		reservation *reservationTable
		attendance  *attendanceTable
		checkin     *checkinTable
	}

	studentTable struct {
		table map[string]*student.Student
		mutex sync.RWMutex
	}

	classTable struct {
		table map[string]*class.Session
		mutex sync.RWMutex
	}

	reservationTable struct {
		table map[string]*class.Reservation // key: studentID + "/" + classID
		mutex sync.RWMutex
	}

	attendanceTable struct {
		table map[string]*attendance.Record // key: Record.ID
		mutex sync.RWMutex
	}

	checkinTable struct {
		settings *checkin.Settings
		sessions map[string]*checkin.Session // key: Session.ID
		mutex    sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		student:     &studentTable{table: make(map[string]*student.Student)},
		class:       &classTable{table: make(map[string]*class.Session)},
		reservation: &reservationTable{table: make(map[string]*class.Reservation)},
		attendance:  &attendanceTable{table: make(map[string]*attendance.Record)},
		checkin:     &checkinTable{sessions: make(map[string]*checkin.Session)},
	}
	return db, nil
}
