package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core/attendance"
	"github.com/campoalegre/unibus/core/operation"
)

type (
	operationApi struct {
		svc        *operation.Service
		attendance *attendance.Service
		validate   *validator.Validate
	}

	dayDetail struct {
		operation.Day
		Trips []operation.Trip `json:"trips"`
	}

	tripDetail struct {
		operation.Trip
		OccupancyRate float64                `json:"occupancy_rate"`
		KmDriven      int                    `json:"km_driven"`
		Passengers    []attendance.Passenger `json:"passengers"`
	}
)

func registerOperationAPI(g *echo.Group, svc *operation.Service, att *attendance.Service, validate *validator.Validate) {
	api := operationApi{svc: svc, attendance: att, validate: validate}
	perm := permissionMiddleware

	days := g.Group("/operation-days")
	days.GET("", queryHandler(svc.QueryDays), perm(permOperationDaysRead))
	days.POST("", createHandler(validate, svc.CreateDay), perm(permOperationDaysWrite))
	days.GET("/:id", api.getDay, perm(permOperationDaysRead))
	days.PUT("/:id", updateHandler(validate, svc.UpdateDay), perm(permOperationDaysWrite))
	days.POST("/:id/publish", api.publishDay, perm(permOperationDaysPublish))
	days.GET("/:id/trips", api.dayTrips, perm(permOperationDaysRead))
	days.POST("/:id/trips", api.addTrip, perm(permOperationDaysWrite))

	trips := g.Group("/trips")
	trips.GET("", api.queryTrips, perm(permTripsRead))
	trips.GET("/:id", api.getTrip, perm(permTripsRead))
	trips.POST("/:id/start", api.startTrip, perm(permTripsCheckin))
	trips.POST("/:id/close", api.closeTrip, perm(permTripsClose))
}

func (api operationApi) getDay(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	day, err := api.svc.GetDay(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	trips, err := api.svc.DayTrips(rctx, day.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dayDetail{Day: day, Trips: trips})
}

func (api operationApi) publishDay(ctx echo.Context) error {
	day, err := api.svc.PublishDay(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, day)
}

func (api operationApi) dayTrips(ctx echo.Context) error {
	trips, err := api.svc.DayTrips(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, trips)
}

func (api operationApi) addTrip(ctx echo.Context) error {
	data, err := bindAndValidate[operation.NewTrip](ctx, api.validate)
	if err != nil {
		return err
	}
	trip, err := api.svc.AddTrip(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, trip)
}

func (api operationApi) queryTrips(ctx echo.Context) error {
	var filter operation.TripFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return err
	}
	trips, err := api.svc.QueryTrips(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, trips)
}

func (api operationApi) getTrip(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	trip, err := api.svc.GetTrip(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	passengers, err := api.attendance.Boarding(rctx, trip.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tripDetail{
		Trip:          trip,
		OccupancyRate: trip.OccupancyRate(),
		KmDriven:      trip.KmDriven(),
		Passengers:    passengers,
	})
}

func (api operationApi) startTrip(ctx echo.Context) error {
	trip, err := api.svc.StartTrip(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, trip)
}

func (api operationApi) closeTrip(ctx echo.Context) error {
	data, err := bindAndValidate[operation.CloseTrip](ctx, api.validate)
	if err != nil {
		return err
	}
	co, err := api.svc.CloseTrip(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, co)
}
