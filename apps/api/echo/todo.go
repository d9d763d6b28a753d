package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
)

type todoApi struct {
	svc      todo.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerTodoAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := todoApi{
		svc:      deps.TodoSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	tg := g.Group("/tasks", authed...)
	tg.GET("", api.query)
	tg.POST("", api.create)

	// detail endpoints
	dg := tg.Group("/:id", taskIDMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.PUT("/finish", api.setFinished)
}

// Handlers

func (api *todoApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	todos, err := api.svc.Query(ctx.Request().Context(), ctxUsr, bindTaskFilter(ctx), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying todos")
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	return ctx.JSON(http.StatusOK, todos)
}

func (api *todoApi) retrieve(ctx echo.Context) error {
	ctxUsr, id, err := api.detailArgs(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting todo")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *todoApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data todo.NewTodo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTodo")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating todo")
	}
	return ctx.JSON(http.StatusCreated, TodoResponse{
		StatusResponse: successResponse(fmt.Sprintf("Task %d added successfully.", t.ID)),
		ID:             t.ID,
	})
}

func (api *todoApi) update(ctx echo.Context) error {
	ctxUsr, id, err := api.detailArgs(ctx)
	if err != nil {
		return err
	}

	var data todo.UpdateTodo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTodo")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating todo")
	}
	return ctx.JSON(http.StatusOK, TodoResponse{StatusResponse: successResponse("Task updated successfully."), ID: t.ID})
}

func (api *todoApi) destroy(ctx echo.Context) error {
	ctxUsr, id, err := api.detailArgs(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, id); err != nil {
		return errors.Wrap(err, "deleting todo")
	}
	return ctx.JSON(http.StatusOK, TodoResponse{StatusResponse: successResponse("Task deleted successfully."), ID: id})
}

func (api *todoApi) setFinished(ctx echo.Context) error {
	ctxUsr, id, err := api.detailArgs(ctx)
	if err != nil {
		return err
	}

	var data todo.SetFinished
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetFinished")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.SetFinished(ctx.Request().Context(), ctxUsr, id, *data.IsFinished)
	if err != nil {
		return errors.Wrap(err, "setting todo status")
	}
	return ctx.JSON(http.StatusOK, TodoResponse{
		StatusResponse: successResponse(fmt.Sprintf("Task %d successfully set.", t.ID)),
		ID:             t.ID,
	})
}

func (api *todoApi) detailArgs(ctx echo.Context) (user.User, int, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, 0, err
	}
	id, err := getContextTaskID(ctx)
	if err != nil {
		return user.User{}, 0, err
	}
	return ctxUsr, id, nil
}

type TodoResponse struct {
	StatusResponse
	ID int `json:"id"`
}
