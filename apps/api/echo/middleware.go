package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core"
)

// Identity headers set by the upstream gateway.
const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
	headerUserRole = "X-User-Role"
)

// actorMiddleware reads the acting user from the identity headers and stores it in the request context.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		id := core.CleanString(req.Header.Get(headerUserID))
		if id == "" {
			return errUnauthorized
		}
		role := core.CleanString(req.Header.Get(headerUserRole), true /* lower */)
		if !validRole(role) {
			return errUnauthorized
		}
		actor := core.Actor{ID: id, Name: core.CleanString(req.Header.Get(headerUserName)), Role: role}
		if actor.Name == "" {
			actor.Name = actor.ID
		}
		ctx.SetRequest(req.WithContext(core.ContextWithActor(req.Context(), actor)))
		return next(ctx)
	}
}

func getContextActor(ctx echo.Context) core.Actor {
	return core.ActorFromContext(ctx.Request().Context())
}

func permissionMiddleware(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if hasPermission(getContextActor(ctx).Role, perm) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

type requestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

func metricsMiddleware(obs requestObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				status, _ = errorResponse(err)
			}
			route := ctx.Path()
			if route == "" {
				route = strings.SplitN(ctx.Request().URL.Path, "?", 2)[0]
			}
			obs.ObserveRequest(ctx.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
