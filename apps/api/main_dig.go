package main

import (
	"context"
	"database/sql"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	dig_container "github.com/Ing-la/future-navigator/apps/api/di/dig"
	echoapi "github.com/Ing-la/future-navigator/apps/api/echo"
	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/report"
	tracingsvc "github.com/Ing-la/future-navigator/services/tracing"
)

func startWithDig() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sql.DB,
		closers dig_container.Closers,
		validate *validator.Validate,
		translator ut.Translator,
		reportSvc *report.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		shutdownTracing, err := tracingsvc.Setup(context.Background(), conf)
		if err != nil {
			apiLogger.Fatal(fmt.Sprintf("setting up tracing: %v", err), err)
		}
		defer func() { _ = shutdownTracing(context.Background()) }()

		echoapi.InitValidators(validate, translator)

		core.ParseEmailTemplates(conf, apiLogger)

		dbLogger := dbLoggerParam.Logger
		if db != nil {
			defer func() {
				if err := db.Close(); err != nil {
					dbLogger.Fatal("Failed to close", err)
				}
			}()
		}
		defer func() { _ = closers.Limiter() }()
		defer reportSvc.Wait()
		defer apiLogger.Info("Application stopped")

		serve(conf, apiLogger, server)
	}))
}
