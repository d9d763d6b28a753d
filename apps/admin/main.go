package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/user"
	emailsvc "github.com/trezcool/todoapp/services/email"
	logsvc "github.com/trezcool/todoapp/services/logger"
	"github.com/trezcool/todoapp/storage/database"
	sqlxrepos "github.com/trezcool/todoapp/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("ADMIN : ", conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// reminders are sent synchronously, before the program exits
	mailSvc := emailsvc.NewConsoleService(conf, logger, true /* sync */)
	if !conf.Debug {
		mailSvc = emailsvc.NewSendgridService(conf, logger, true /* sync */)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	remindRepo := sqlxrepos.NewReminderRepository(db)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrSvc:     user.NewService(usrRepo),
		usrRepo:    usrRepo,
		remindSvc:  reminder.NewService(remindRepo, mailSvc, conf),
		validate:   validate,
		translator: translator,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
