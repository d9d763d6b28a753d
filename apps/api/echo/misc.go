package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Todo API!")
}

func root(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, StatusResponse{Status: "Success", Message: "This is the root endpoint."})
}

func schemaVersion(version func(context.Context) (int64, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if version == nil {
			return errors.New("schema version unavailable")
		}
		v, err := version(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "getting schema version")
		}
		return ctx.JSON(http.StatusOK, SchemaResponse{Version: v})
	}
}
