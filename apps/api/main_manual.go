package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/Ing-la/future-navigator/apps/api/echo"
	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
	blobsvc "github.com/Ing-la/future-navigator/services/blob"
	emailsvc "github.com/Ing-la/future-navigator/services/email"
	llmsvc "github.com/Ing-la/future-navigator/services/llm"
	logsvc "github.com/Ing-la/future-navigator/services/logger"
	ratelimitsvc "github.com/Ing-la/future-navigator/services/ratelimit"
	tracingsvc "github.com/Ing-la/future-navigator/services/tracing"
	"github.com/Ing-la/future-navigator/storage/database"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	shutdownTracing, err := tracingsvc.Setup(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up tracing: %v", err), err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// set up DB
	db, repos, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if db != nil {
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
	}

	blobs, err := blobsvc.New(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}

	limiter, closeLimiter, err := ratelimitsvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up rate limiter: %v", err), err)
	}
	defer func() { _ = closeLimiter() }()

	sealer, err := core.NewSealer(conf.SecretKey)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up sealer: %v", err), err)
	}

	// set up services
	mailSvc := newEmailService(conf, logger)
	userSvc := user.NewService(repos.User, mailSvc, conf)
	classSvc := class.NewService(repos.Class, userSvc)
	studentSvc := student.NewService(repos.Student, classSvc)
	videoSvc := video.NewService(repos.Video, studentSvc, blobs, logger)
	radarSvc := radar.NewService(repos.Radar, studentSvc)
	aiSvc := ai.NewService(repos.AIConfig, llmsvc.NewGemini(conf), sealer, conf)
	reportSvc := report.NewService(repos.Report, studentSvc, radarSvc, aiSvc, logger)
	defer reportSvc.Wait()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := echoapi.NewTranslator()
	echoapi.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			DB:         db,
			Limiter:    limiter,
			UserSvc:    userSvc,
			ClassSvc:   classSvc,
			StudentSvc: studentSvc,
			VideoSvc:   videoSvc,
			ReportSvc:  reportSvc,
			RadarSvc:   radarSvc,
			AISvc:      aiSvc,
		},
	)

	serve(conf, logger, server)
}

// setUpStorage returns postgres repositories, or in-memory ones with the memory engine (db is then nil).
func setUpStorage(conf *core.Config) (*sql.DB, *database.Repositories, error) {
	if conf.Database.Engine == core.DBEngineMemory {
		return nil, database.NewMemoryRepositories(), nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, database.NewRepositories(db), nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Mail.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}
