package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/report"
	exportsvc "github.com/campoalegre/unibus/services/export"
)

type reportApi struct {
	svc    *report.Service
	export *exportsvc.Service
	loc    *time.Location
}

func registerReportAPI(g *echo.Group, svc *report.Service, export *exportsvc.Service, loc *time.Location) {
	api := reportApi{svc: svc, export: export, loc: loc}
	perm := permissionMiddleware(permReportsRead)

	reports := g.Group("/reports", perm)
	reports.GET("/occupancy", api.occupancy)
	reports.GET("/fleet-km", api.fleetKm)
	reports.GET("/monthly-summary", api.monthlySummary)

	g.GET("/exports/trips/:id/attendance", api.exportAttendance, perm)
}

// dateRange binds the from/to query params (YYYY-MM-DD, inclusive).
func dateRange(ctx echo.Context) (operation.DayFilter, error) {
	filter := operation.DayFilter{From: ctx.QueryParam("from"), To: ctx.QueryParam("to")}
	filter.Clean()
	for field, value := range map[string]string{"from": filter.From, "to": filter.To} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: field, Error: field + " must be a date in YYYY-MM-DD format"})
		}
	}
	return filter, nil
}

func (api reportApi) occupancy(ctx echo.Context) error {
	filter, err := dateRange(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Occupancy(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api reportApi) fleetKm(ctx echo.Context) error {
	filter, err := dateRange(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.FleetKm(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

// monthlySummary defaults to the current month.
func (api reportApi) monthlySummary(ctx echo.Context) error {
	now := time.Now().In(api.loc)
	year, month := now.Year(), int(now.Month())
	if v := ctx.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 9999 {
			return core.NewValidationError(nil, core.FieldError{Field: "year", Error: "year must be a valid year"})
		}
		year = y
	}
	if v := ctx.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.NewValidationError(nil, core.FieldError{Field: "month", Error: "month must be between 1 and 12"})
		}
		month = m
	}

	sum, err := api.svc.MonthlySummary(ctx.Request().Context(), year, month)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api reportApi) exportAttendance(ctx echo.Context) error {
	file, err := api.export.ExportAttendance(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("format"))
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return ctx.Stream(http.StatusOK, file.ContentType, file.Content)
}
