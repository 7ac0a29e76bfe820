package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	stdSvc *student.Service
	clsSvc *class.Service
	attSvc *attendance.Service
	ckSvc  *checkin.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                                   - run database migrations (goose commands)")
	fmt.Println("  addstudent -name NAME -belt BELT [-status STATUS]        - enroll a new student")
	fmt.Println("  assignpin -student STUDENT_ID                            - assign a check-in PIN (prompted)")
	fmt.Println("  addclass -name NAME -weekday D -start MIN -end MIN -instructor NAME [-capacity N]")
	fmt.Println("  reserve -student STUDENT_ID -class CLASS_ID              - book a roster spot")
	fmt.Println("  sweepcheckins                                            - close stale check-in sessions now")
	fmt.Println("  exportcsv -student STUDENT_ID [-out FILE]                - export a student's attendance history")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentBelt := addStudentCmd.String("belt", "", "The student's belt level.")
	addStudentStatus := addStudentCmd.String("status", student.MembershipActive, "The student's membership status.")

	assignPinCmd := flag.NewFlagSet("assignpin", flag.ExitOnError)
	assignPinStudent := assignPinCmd.String("student", "", "The student's ID. The PIN will be prompted next.")

	addClassCmd := flag.NewFlagSet("addclass", flag.ExitOnError)
	addClassName := addClassCmd.String("name", "", "The class name.")
	addClassWeekday := addClassCmd.Int("weekday", 0, "The scheduled weekday (0=Sunday .. 6=Saturday).")
	addClassStart := addClassCmd.Int("start", 0, "The start time in minutes from midnight.")
	addClassEnd := addClassCmd.Int("end", 0, "The end time in minutes from midnight.")
	addClassInstructor := addClassCmd.String("instructor", "", "The instructor's name.")
	addClassCapacity := addClassCmd.Int("capacity", 0, "The class capacity (0 = unlimited).")

	reserveCmd := flag.NewFlagSet("reserve", flag.ExitOnError)
	reserveStudent := reserveCmd.String("student", "", "The student's ID.")
	reserveClass := reserveCmd.String("class", "", "The class ID.")

	exportCmd := flag.NewFlagSet("exportcsv", flag.ExitOnError)
	exportStudent := exportCmd.String("student", "", "The student's ID.")
	exportOut := exportCmd.String("out", "", "The output file. Defaults to the standard export name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentName == "" || *addStudentBelt == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentName, *addStudentBelt, *addStudentStatus)

	case "assignpin":
		if err := assignPinCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignPinStudent == "" {
			assignPinCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter PIN:")
		pin, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pin) == 0 {
			assignPinCmd.Usage()
			return errHelp
		}
		return cli.assignPin(*assignPinStudent, string(pin))

	case "addclass":
		if err := addClassCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addClassName == "" || *addClassInstructor == "" {
			addClassCmd.Usage()
			return errHelp
		}
		return cli.addClass(class.NewSession{
			Name:           *addClassName,
			Weekday:        *addClassWeekday,
			StartMinute:    *addClassStart,
			EndMinute:      *addClassEnd,
			Capacity:       *addClassCapacity,
			InstructorName: *addClassInstructor,
		})

	case "reserve":
		if err := reserveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reserveStudent == "" || *reserveClass == "" {
			reserveCmd.Usage()
			return errHelp
		}
		return cli.reserve(*reserveStudent, *reserveClass)

	case "sweepcheckins":
		return cli.sweepCheckins()

	case "exportcsv":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportStudent == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportCSV(*exportStudent, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

func newValidator() *validator.Validate {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}
