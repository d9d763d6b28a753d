package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
)

const internalErrorMessage = "An internal server error occurred. Please try again later."

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials.")
	errForbidden    = echo.NewHTTPError(http.StatusForbidden, core.ErrPermissionDenied.Error())
	errTooMany      = echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
)

func userNotFound(id interface{}) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("User with ID %v not found.", id))
}

func taskNotFound(id interface{}) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Task with ID %v not found.", id))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = errUnauthorized.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError:
			code = http.StatusConflict
			message = origErr.Error()
		case *core.NoChangeError:
			code = http.StatusUnprocessableEntity
			message = origErr.Error()
		default:
			switch origErr {
			case core.ErrPermissionDenied:
				code = http.StatusForbidden
				message = origErr.Error()
			case user.ErrNotFound, todo.ErrNotFound:
				code = http.StatusNotFound
				message = http.StatusText(http.StatusNotFound)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = internalErrorMessage

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.UserID
					usr.Role = claims.Role
				}
				logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Path(), err), errors.WithStack(err), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				logger.Error(fmt.Sprintf("sending error response: %v", err), err)
			}
		}
	}
}
