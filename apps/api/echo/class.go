package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
)

type classApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *class.Service, validate *validator.Validate) {
	api := classApi{svc: svc, validate: validate}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/today", api.queryToday)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/reservations", api.reserve)
	cg.DELETE("/:id/reservations/:studentID", api.cancelReservation)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *classApi) query(ctx echo.Context) error {
	sessions, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *classApi) queryToday(ctx echo.Context) error {
	sessions, err := api.svc.TodaySessions(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "querying today's classes")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

type ReservationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (api *classApi) reserve(ctx echo.Context) error {
	var data ReservationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReservationRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.Reserve(ctx.Request().Context(), data.StudentID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *classApi) cancelReservation(ctx echo.Context) error {
	_, err := api.svc.CancelReservation(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
