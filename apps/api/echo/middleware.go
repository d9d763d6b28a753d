package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
)

const contextObjectKey = "object"

// adminMiddleware requires authMiddleware to run first.
func adminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if !ctxUsr.IsAdmin() {
				return errForbidden
			}
			return next(ctx)
		}
	}
}

// userDetailMiddleware sets the user identified by the :id param as context object,
// if it exists (404) and the context user may access it (403).
func userDetailMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, ok := core.ParseID(ctx.Param("id"))
			if !ok {
				return userNotFound(ctx.Param("id"))
			}

			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}

			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return userNotFound(id)
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !ctxUsr.CanAccess(usr.ID) {
				return errForbidden
			}
			ctx.Set(contextObjectKey, usr)
			return next(ctx)
		}
	}
}

// taskIDMiddleware validates the :id param and maps missing tasks to 404.
func taskIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, ok := core.ParseID(ctx.Param("id"))
		if !ok {
			return taskNotFound(ctx.Param("id"))
		}
		ctx.Set(contextObjectKey, id)

		err := next(ctx)
		if errors.Cause(err) == todo.ErrNotFound {
			return taskNotFound(id)
		}
		return err
	}
}

func getContextObject(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.New("user object not found in echo.Context")
	}
	return usr, nil
}

func getContextTaskID(ctx echo.Context) (int, error) {
	id, ok := ctx.Get(contextObjectKey).(int)
	if !ok {
		return 0, errors.New("task ID not found in echo.Context")
	}
	return id, nil
}
