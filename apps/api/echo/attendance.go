package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.mark)
	ag.POST("/bulk", api.bulkMark)
	ag.GET("", api.query)
	ag.GET("/record", api.retrieve)
	ag.GET("/stats", api.stats)
	ag.GET("/export", api.export)

	// registered on the parent: a second "/classes" group would shadow
	// the classApi routes with echo's catch-all
	g.GET("/classes/:id/roster", api.roster, jwt)
	g.POST("/classes/:id/absences", api.markAbsences, jwt)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Mark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.MarkSingle(
		ctx.Request().Context(),
		data.StudentID, data.ClassID, data.DateOrToday(time.Now()),
		data.Status, data.Notes, attendance.SourceManual,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) bulkMark(ctx echo.Context) error {
	var data attendance.BulkMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	recs, err := api.svc.BulkApply(
		ctx.Request().Context(),
		data.ClassID, data.DateOrToday(time.Now()), data.StudentIDs, data.Status,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

// AttendanceQuery narrows GET /attendance; dates use the yyyy-mm-dd layout.
type AttendanceQuery struct {
	StudentID string `query:"student_id"`
	ClassID   string `query:"class_id"`
	From      string `query:"from" validate:"omitempty,dateformat"`
	To        string `query:"to" validate:"omitempty,dateformat"`
	Status    string `query:"status" validate:"omitempty,attstatus"`
}

func (q AttendanceQuery) filter() attendance.Filter {
	filter := attendance.Filter{
		StudentID: q.StudentID,
		ClassID:   q.ClassID,
		Status:    attendance.Status(q.Status),
	}
	if q.From != "" {
		filter.From, _ = time.Parse(attendance.DateLayout, q.From)
	}
	if q.To != "" {
		filter.To, _ = time.Parse(attendance.DateLayout, q.To)
	}
	return filter
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var data AttendanceQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceQuery")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	recs, err := api.svc.Query(ctx.Request().Context(), data.filter())
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// RecordQuery identifies one (student, class, date) ledger entry; the date
// defaults to today.
type RecordQuery struct {
	StudentID string `query:"student_id" validate:"required"`
	ClassID   string `query:"class_id" validate:"required"`
	Date      string `query:"date" validate:"omitempty,dateformat"`
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	var data RecordQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordQuery")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	date := attendance.DateOf(time.Now())
	if data.Date != "" {
		date, _ = time.Parse(attendance.DateLayout, data.Date)
	}

	rec, err := api.svc.Get(ctx.Request().Context(), data.StudentID, data.ClassID, date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

// StatsQuery scopes GET /attendance/stats.
type StatsQuery struct {
	StudentID  string `query:"student_id"`
	ClassID    string `query:"class_id"`
	From       string `query:"from" validate:"omitempty,dateformat"`
	To         string `query:"to" validate:"omitempty,dateformat"`
	GoalTarget int    `query:"goal_target" validate:"omitempty,min=1,max=100"`
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	var data StatsQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatsQuery")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	scope := attendance.StatsScope{
		StudentID:  data.StudentID,
		ClassID:    data.ClassID,
		GoalTarget: data.GoalTarget,
	}
	if data.From != "" {
		scope.From, _ = time.Parse(attendance.DateLayout, data.From)
	}
	if data.To != "" {
		scope.To, _ = time.Parse(attendance.DateLayout, data.To)
	}

	snap, err := api.svc.Stats(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	studentID := core.CleanString(ctx.QueryParam("student_id"))
	if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}

	// buffered so a late error still returns a clean status
	var buf bytes.Buffer
	if err := api.svc.ExportCSV(ctx.Request().Context(), &buf, studentID); err != nil {
		return err
	}

	filename := attendance.ExportFilename(time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (api *attendanceApi) roster(ctx echo.Context) error {
	date, err := dateParamOrToday(ctx)
	if err != nil {
		return err
	}

	entries, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"), date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

type AbsencesRequest struct {
	Date string `json:"date" validate:"omitempty,dateformat"`
}

type AbsencesResponse struct {
	Marked int `json:"marked"`
}

func (api *attendanceApi) markAbsences(ctx echo.Context) error {
	var data AbsencesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AbsencesRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	date := attendance.DateOf(time.Now())
	if data.Date != "" {
		date, _ = time.Parse(attendance.DateLayout, data.Date)
	}

	n, err := api.svc.MarkUnmarkedAsAbsent(ctx.Request().Context(), ctx.Param("id"), date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AbsencesResponse{Marked: n})
}

func dateParamOrToday(ctx echo.Context) (time.Time, error) {
	raw := ctx.QueryParam("date")
	if raw == "" {
		return attendance.DateOf(time.Now()), nil
	}
	date, err := time.Parse(attendance.DateLayout, raw)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be yyyy-mm-dd"})
	}
	return date, nil
}
