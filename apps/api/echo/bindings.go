package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
)

const dateLayout = "2006-01-02"

// bindPage reads the page & limit query params. Bad values fall back to the defaults.
func bindPage(ctx echo.Context) core.Page {
	var page core.Page
	_ = echo.QueryParamsBinder(ctx).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError()
	page.Clean()
	return page
}

// bindQuery binds the query params of any request method into dest.
func bindQuery(ctx echo.Context, dest interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, dest); err != nil {
		return errors.Wrap(err, "binding query params")
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and plain dates (midnight in loc).
func parseTime(field, value string, loc *time.Location) (time.Time, error) {
	value = core.CleanString(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, core.NewValidationError(nil, core.FieldError{
		Field: field,
		Error: field + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp",
	})
}

// validatable is the pointer-to-input constraint of bindAndValidate.
type validatable[T any] interface {
	*T
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request body into a new T and validates it.
func bindAndValidate[T any, PT validatable[T]](ctx echo.Context, validate *validator.Validate) (T, error) {
	var data T
	if err := ctx.Bind(PT(&data)); err != nil {
		return data, err
	}
	if err := PT(&data).Validate(validate); err != nil {
		return data, err
	}
	return data, nil
}
