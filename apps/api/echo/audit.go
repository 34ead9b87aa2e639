package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core/audit"
)

type auditApi struct {
	svc *audit.Service
	loc *time.Location
}

func registerAuditAPI(g *echo.Group, svc *audit.Service, loc *time.Location) {
	api := auditApi{svc: svc, loc: loc}
	g.GET("/audit-logs", api.query, permissionMiddleware(permAuditLogsRead))
}

func (api auditApi) query(ctx echo.Context) error {
	var (
		filter audit.Filter
		err    error
	)
	params := ctx.QueryParams()
	filter.UserID = params.Get("user_id")
	filter.Action = params.Get("action")
	filter.EntityType = params.Get("entity_type")
	filter.EntityID = params.Get("entity_id")
	if filter.From, err = parseTime("from", params.Get("from"), api.loc); err != nil {
		return err
	}
	if filter.To, err = parseTime("to", params.Get("to"), api.loc); err != nil {
		return err
	}

	res, err := api.svc.Query(ctx.Request().Context(), filter, bindPage(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
