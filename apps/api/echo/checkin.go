package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
)

var (
	checkinAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mahudhurio_checkin_attempts_total",
		Help: "Kiosk check-in attempts by outcome.",
	}, []string{"outcome"})

	checkinDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mahudhurio_checkin_duration_seconds",
		Help:    "Time spent validating a kiosk check-in attempt.",
		Buckets: prometheus.DefBuckets,
	})
)

type (
	checkinDeps struct {
		ckSvc    *checkin.Service
		gate     *checkin.Gate
		kiosk    *checkin.Kiosk
		validate *validator.Validate
	}

	checkinApi struct {
		deps checkinDeps
	}
)

func registerCheckinAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps checkinDeps) {
	api := checkinApi{deps: deps}

	cg := g.Group("/checkins", jwt)
	cg.POST("", api.submit)
	cg.GET("/gate", api.gateState)
	cg.POST("/checkout", api.checkout)

	sg := g.Group("/settings", jwt)
	sg.GET("", api.getSettings)
	sg.PATCH("", api.patchSettings)

	kg := g.Group("/kiosk", jwt)
	kg.POST("/start", api.kioskStart)
	kg.POST("/stop", api.kioskStop)
	kg.GET("/feed", api.kioskFeed)
}

func (api *checkinApi) submit(ctx echo.Context) error {
	var att checkin.Attempt
	if err := ctx.Bind(&att); err != nil {
		return errors.Wrap(err, "binding to Attempt")
	}
	att.DeviceID = getContextDeviceID(ctx)

	start := time.Now()
	res, err := api.deps.gate.Submit(ctx.Request().Context(), att)
	checkinDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		checkinAttempts.WithLabelValues("failure").Inc()
		return err
	}
	checkinAttempts.WithLabelValues("success").Inc()

	return ctx.JSON(http.StatusCreated, res)
}

type GateStateResponse struct {
	State  checkin.GateState `json:"state"`
	Buffer string            `json:"buffer"`
}

func (api *checkinApi) gateState(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, GateStateResponse{
		State:  api.deps.gate.State(),
		Buffer: api.deps.gate.Buffer(),
	})
}

type CheckoutRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (api *checkinApi) checkout(ctx echo.Context) error {
	var data CheckoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)
	if err := api.deps.validate.Struct(&data); err != nil {
		return err
	}

	now := time.Now().UTC()
	sess, err := api.deps.ckSvc.CheckOut(ctx.Request().Context(), data.StudentID, attendance.DateOf(now), now)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *checkinApi) getSettings(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.deps.ckSvc.Policy())
}

func (api *checkinApi) patchSettings(ctx echo.Context) error {
	var patch checkin.SettingsPatch
	if err := ctx.Bind(&patch); err != nil {
		return errors.Wrap(err, "binding to SettingsPatch")
	}
	if err := patch.Validate(api.deps.validate); err != nil {
		return err
	}

	settings, err := api.deps.ckSvc.UpdateSettings(ctx.Request().Context(), patch)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

type KioskStatusResponse struct {
	Active bool `json:"active"`
}

func (api *checkinApi) kioskStart(ctx echo.Context) error {
	// the kiosk outlives the request
	api.deps.kiosk.Start(context.Background())
	return ctx.JSON(http.StatusOK, KioskStatusResponse{Active: api.deps.kiosk.Active()})
}

func (api *checkinApi) kioskStop(ctx echo.Context) error {
	api.deps.kiosk.Stop()
	return ctx.JSON(http.StatusOK, KioskStatusResponse{Active: api.deps.kiosk.Active()})
}

type KioskFeedResponse struct {
	Active bool                `json:"active"`
	Feed   []attendance.Record `json:"feed"`
}

func (api *checkinApi) kioskFeed(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, KioskFeedResponse{
		Active: api.deps.kiosk.Active(),
		Feed:   api.deps.kiosk.Feed(),
	})
}
