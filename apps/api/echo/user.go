package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/user"
)

type userApi struct {
	conf        *core.Config
	logger      core.Logger
	svc         user.ServiceInterface
	reminderSvc reminder.ServiceInterface
	scheduler   ReminderScheduler
	validate    *validator.Validate
}

func registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		conf:        deps.Conf,
		logger:      deps.Logger,
		svc:         deps.UserSvc,
		reminderSvc: deps.ReminderSvc,
		scheduler:   deps.Scheduler,
		validate:    deps.Validate,
	}
	admin := adminMiddleware(api.svc)

	// un-authed endpoints
	g.POST("/login", api.login, rateLimitMiddleware(deps.Conf.Server.LoginRateLimit, deps.Conf.Server.LoginRateBurst))

	ug := g.Group("/users")
	ug.POST("/register", api.create)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.GET("", api.query, admin)
	ag.POST("/reminders", api.setReminder)
	ag.POST("/send_reminders", api.sendReminders, admin)
	ag.GET("/get_tz_list", api.timezoneEmails, admin)

	// detail endpoints
	dg := ag.Group("/:id", userDetailMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.PATCH("", api.setRole, admin)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{Message: "User created successfully.", User: usr})
}

func (api *userApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.QueryAll(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UserResponse{Message: "User was found.", User: usr})
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	tzChanged := data.Timezone != usr.Timezone
	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	if tzChanged && usr.DailyReminder {
		api.scheduleReminders(usr)
	}
	return ctx.JSON(http.StatusOK, UserResponse{Message: "User was updated.", User: usr})
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, successResponse(fmt.Sprintf("User %d deleted successfully.", usr.ID)))
}

func (api *userApi) setRole(ctx echo.Context) error {
	usr, err := getContextObject(ctx)
	if err != nil {
		return err
	}

	var data user.SetRole
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetRole")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if usr, err = api.svc.SetRole(ctx.Request().Context(), usr, data.Role); err != nil {
		return errors.Wrap(err, "setting role")
	}
	return ctx.JSON(http.StatusOK, successResponse(fmt.Sprintf("User %d successfully changed to %s.", usr.ID, usr.Role)))
}

func (api *userApi) setReminder(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.SetReminder
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetReminder")
	}

	usr, err := api.svc.SetReminder(ctx.Request().Context(), ctxUsr, data.Reminder)
	if err != nil {
		return errors.Wrap(err, "setting reminder")
	}
	if usr.DailyReminder {
		api.scheduleReminders(usr)
	}
	return ctx.JSON(http.StatusOK, successResponse("Reminders successfully configured."))
}

// scheduleReminders makes sure usr's timezone has a reminder job before the next daily refresh.
// Jobs of timezones without subscribers are only dropped by the refresh.
func (api *userApi) scheduleReminders(usr user.User) {
	if api.scheduler == nil {
		return
	}
	if _, err := api.scheduler.Add(usr.Timezone); err != nil {
		api.logger.Error(fmt.Sprintf("scheduling reminders for %q: %v", usr.Timezone, err), err, usr)
	}
}

func (api *userApi) sendReminders(ctx echo.Context) error {
	var data SendRemindersRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRemindersRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	emails, err := api.reminderSvc.Send(ctx.Request().Context(), data.Timezone)
	if err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	return ctx.JSON(http.StatusOK, SendRemindersResponse{
		StatusResponse: successResponse("Reminders were sent to the following emails: [" + strings.Join(emails, ", ") + "]"),
		Emails:         emails,
	})
}

func (api *userApi) timezoneEmails(ctx echo.Context) error {
	tzEmails, err := api.reminderSvc.TimezoneEmails(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing reminder emails")
	}
	return ctx.JSON(http.StatusOK, tzEmails)
}

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}

	UserResponse struct {
		Message string    `json:"message"`
		User    user.User `json:"user"`
	}

	StatusResponse struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	SchemaResponse struct {
		Version int64 `json:"version"`
	}

	SendRemindersRequest struct {
		Timezone string `json:"timezone" validate:"required,iana_tz"`
	}

	SendRemindersResponse struct {
		StatusResponse
		Emails []string `json:"emails"`
	}
)

func successResponse(msg string) StatusResponse {
	return StatusResponse{Status: "success", Message: msg}
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (sr *SendRemindersRequest) Validate(validate *validator.Validate) error {
	sr.Timezone = core.CleanString(sr.Timezone)
	return validate.Struct(sr)
}
