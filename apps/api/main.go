package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	_ "time/tzdata"

	"github.com/jmoiron/sqlx"

	digcontainer "github.com/trezcool/todoapp/apps/api/di/dig"
	echoapi "github.com/trezcool/todoapp/apps/api/echo"
	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/user"
	metricsvc "github.com/trezcool/todoapp/services/metrics"
)

func main() {
	c := digcontainer.New()

	must(c.Invoke(func(
		conf *core.Config,
		loggers digcontainer.Loggers,
		db *sqlx.DB,
		usrSvc user.ServiceInterface,
		scheduler *reminder.Scheduler,
		collectors *metricsvc.Collectors,
		server *echoapi.Server,
	) {
		apiLogger := loggers.API

		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(apiLogger)

		defer func() {
			if err := db.Close(); err != nil {
				loggers.DB.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		ensureAdmin(conf, usrSvc, apiLogger)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.
		// /metrics - Prometheus collectors.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		http.Handle("/metrics", collectors.Handler())

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Reminder Scheduler

		if conf.Reminder.Disabled {
			apiLogger.Info("daily reminders are disabled")
		} else {
			if err := scheduler.Start(context.Background()); err != nil {
				apiLogger.Fatal(fmt.Sprintf("starting reminder scheduler: %v", err), err)
			}
			apiLogger.Info(fmt.Sprintf("reminder scheduler started with jobs %v", scheduler.Jobs()))
			defer func() {
				<-scheduler.Stop().Done()
				loggers.Cron.Info("reminder scheduler stopped")
			}()
		}

		// =========================================================================
		// Start API Service

		go func() {
			apiLogger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

// ensureAdmin seeds the default admin account. A generated password is logged once.
func ensureAdmin(conf *core.Config, usrSvc user.ServiceInterface, logger core.Logger) {
	pwd := conf.Admin.Password
	generated := pwd == ""
	if generated {
		pwd = user.RandomPassword()
	}

	admin, created, err := usrSvc.EnsureAdmin(context.Background(), conf.Admin.Username, conf.Admin.Email, pwd)
	if err != nil {
		logger.Fatal(fmt.Sprintf("ensuring admin: %v", err), err)
	}
	if !created {
		return
	}
	if generated {
		logger.Info(fmt.Sprintf("admin %q created with password %q, change it!", admin.Username, pwd))
	} else {
		logger.Info(fmt.Sprintf("admin %q created", admin.Username))
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
