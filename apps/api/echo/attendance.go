package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}
	perm := permissionMiddleware

	trip := g.Group("/trips/:id")
	trip.GET("/attendance", api.records, perm(permTripsRead))
	trip.POST("/attendance", api.checkIn, perm(permTripsCheckin))
	trip.DELETE("/attendance/:studentId", api.undoCheckIn, perm(permTripsUndoCheckin))
	trip.GET("/passengers", api.passengers, perm(permTripsRead))
}

func (api attendanceApi) checkIn(ctx echo.Context) error {
	data, err := bindAndValidate[attendance.NewCheckIn](ctx, api.validate)
	if err != nil {
		return err
	}
	rec, err := api.svc.CheckIn(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api attendanceApi) undoCheckIn(ctx echo.Context) error {
	if err := api.svc.UndoCheckIn(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api attendanceApi) records(ctx echo.Context) error {
	recs, err := api.svc.Records(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api attendanceApi) passengers(ctx echo.Context) error {
	passengers, err := api.svc.Boarding(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, passengers)
}
