package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid user identity")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

const codeValidationFailed = "VALIDATION_FAILED"

// kindStatus maps domain error kinds to HTTP status codes.
var kindStatus = map[core.Kind]int{
	core.KindNotFound:      http.StatusNotFound,
	core.KindValidation:    http.StatusUnprocessableEntity,
	core.KindConflict:      http.StatusConflict,
	core.KindLowConfidence: http.StatusBadRequest,
	core.KindImmutable:     http.StatusConflict,
}

func fieldErrors(fields []core.FieldError) map[string]string {
	fldErrs := make(map[string]string, len(fields))
	for _, fErr := range fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

// errorResponse returns the status code & body err is rendered with.
// A nil body means err is unexpected (500).
func errorResponse(err error, translator ...ut.Translator) (int, interface{}) {
	var (
		httpErr *echo.HTTPError
		vErrs   validator.ValidationErrors
		valErr  *core.ValidationError
		dErr    *core.Error
	)

	switch {
	case errors.As(err, &httpErr):
		if httpErr.Internal != nil {
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
		}
		if m, ok := httpErr.Message.(string); ok {
			return httpErr.Code, echo.Map{"error": m}
		}
		return httpErr.Code, httpErr.Message
	case errors.As(err, &vErrs):
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			if len(translator) > 0 && translator[0] != nil {
				fldErrs[vErr.Field()] = vErr.Translate(translator[0])
			} else {
				fldErrs[vErr.Field()] = vErr.Error()
			}
		}
		return http.StatusUnprocessableEntity, fldErrs
	case errors.As(err, &valErr):
		if len(valErr.Fields) > 0 {
			return http.StatusUnprocessableEntity, fieldErrors(valErr.Fields)
		}
		code := codeValidationFailed
		if errors.As(valErr.Err, &dErr) {
			code = dErr.Code
		}
		return http.StatusUnprocessableEntity, echo.Map{"error": valErr.Error(), "code": code}
	case errors.As(err, &dErr):
		status, ok := kindStatus[dErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, echo.Map{"error": dErr.Message, "code": dErr.Code}
	}
	return http.StatusInternalServerError, nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)
		if message == nil { // any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			logger.Error(msg, errors.Wrap(err, msg), getContextActor(ctx))

			if ctx.Echo().Debug {
				msg = err.Error()
			}
			message = echo.Map{"error": msg}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
