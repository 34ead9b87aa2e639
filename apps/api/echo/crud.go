package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core"
)

// Generic handlers shared by the registry resources.

func createHandler[N any, PN validatable[N], T any](validate *validator.Validate, create func(context.Context, N) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := bindAndValidate[N, PN](ctx, validate)
		if err != nil {
			return err
		}
		obj, err := create(ctx.Request().Context(), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, obj)
	}
}

func queryHandler[F any, T any](query func(context.Context, F, core.Page) (core.Paginated[T], error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var filter F
		if err := bindQuery(ctx, &filter); err != nil {
			return err
		}
		res, err := query(ctx.Request().Context(), filter, bindPage(ctx))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func getHandler[T any](get func(context.Context, string) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		obj, err := get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

func updateHandler[U any, PU validatable[U], T any](validate *validator.Validate, update func(context.Context, string, U) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := bindAndValidate[U, PU](ctx, validate)
		if err != nil {
			return err
		}
		obj, err := update(ctx.Request().Context(), ctx.Param("id"), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

func deactivateHandler(deactivate func(context.Context, string) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := deactivate(ctx.Request().Context(), ctx.Param("id")); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}
