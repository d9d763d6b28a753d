package digcontainer

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/todoapp/apps/api/echo"
	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
	emailsvc "github.com/trezcool/todoapp/services/email"
	logsvc "github.com/trezcool/todoapp/services/logger"
	metricsvc "github.com/trezcool/todoapp/services/metrics"
	"github.com/trezcool/todoapp/storage/database"
	sqlxrepos "github.com/trezcool/todoapp/storage/database/sqlx"
)

// Loggers are the named loggers of the app.
type Loggers struct {
	dig.In

	API  core.Logger
	DB   core.Logger `name:"dbLogger"`
	Cron core.Logger `name:"cronLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.New("API : ", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.New("DB : ", conf)
}

func newCronLogger(conf *core.Config) core.Logger {
	return logsvc.New("CRON : ", conf)
}

type dbParams struct {
	dig.In

	Conf   *core.Config
	Logger core.Logger `name:"dbLogger"`
}

// newDB creates the database if needed, then connects to it and applies the migrations.
func newDB(p dbParams) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(p.Conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}

	db, err := database.Open(p.Conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	p.Logger.Info("database ready")
	return db, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newReminderService(repo reminder.Repository, mailSvc core.EmailService, conf *core.Config, collectors *metricsvc.Collectors) reminder.ServiceInterface {
	return reminder.NewService(repo, mailSvc, conf, collectors)
}

type schedulerParams struct {
	dig.In

	Svc        reminder.ServiceInterface
	Repo       reminder.Repository
	Logger     core.Logger `name:"cronLogger"`
	Conf       *core.Config
	Collectors *metricsvc.Collectors
}

func newScheduler(p schedulerParams) *reminder.Scheduler {
	return reminder.NewScheduler(p.Svc, p.Repo, p.Logger, p.Conf, p.Collectors)
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	DB          *sqlx.DB
	UserSvc     user.ServiceInterface
	TodoSvc     todo.ServiceInterface
	ReminderSvc reminder.ServiceInterface
	Scheduler   *reminder.Scheduler
	Collectors  *metricsvc.Collectors
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		UserSvc:     p.UserSvc,
		TodoSvc:     p.TodoSvc,
		ReminderSvc: p.ReminderSvc,
		Metrics:     p.Collectors,
		SchemaVersion: func(ctx context.Context) (int64, error) {
			return database.SchemaVersion(ctx, p.DB.DB)
		},
		Validate:   p.Validate,
		Translator: p.Translator,
	}
	// with reminders disabled, nothing is scheduled from the API either
	if !p.Conf.Reminder.Disabled {
		deps.Scheduler = p.Scheduler
	}
	return echoapi.NewServer(deps)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newCronLogger, dig.Name("cronLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(metricsvc.New))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewTodoRepository))
	must(c.Provide(sqlxrepos.NewReminderRepository))

	// services
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(todo.NewService))
	must(c.Provide(newReminderService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
