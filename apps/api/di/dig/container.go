package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	"github.com/Ing-la/future-navigator/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is nil DB plus in-memory repositories with the memory engine.
type Storage struct {
	dig.Out
	DB       *sql.DB
	User     user.Repository
	Class    class.Repository
	Student  student.Repository
	Video    video.Repository
	Report   report.Repository
	Radar    radar.Repository
	AIConfig ai.ConfigRepository
}

type LimiterResult struct {
	dig.Out
	Limiter ratelimitsvc.Limiter
	Close   func() error `name:"limiterClose"`
}

// Closers are released on shutdown.
type Closers struct {
	dig.In
	Limiter func() error `name:"limiterClose"`
}

type ServerParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *sql.DB
	Limiter    ratelimitsvc.Limiter
	UserSvc    user.ServiceInterface
	ClassSvc   class.ServiceInterface
	StudentSvc student.ServiceInterface
	VideoSvc   video.ServiceInterface
	ReportSvc  report.ServiceInterface
	RadarSvc   radar.ServiceInterface
	AISvc      ai.ServiceInterface
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	var (
		db    *sql.DB
		repos *database.Repositories
	)
	if conf.Database.Engine == core.DBEngineMemory {
		repos = database.NewMemoryRepositories()
	} else {
		setUp := func() (*sql.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}

			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}

			if err = database.Migrate(db); err != nil {
				return nil, err
			}
			return db, nil
		}

		var err error
		if db, err = setUp(); err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		repos = database.NewRepositories(db)
	}

	return Storage{
		DB:       db,
		User:     repos.User,
		Class:    repos.Class,
		Student:  repos.Student,
		Video:    repos.Video,
		Report:   repos.Report,
		Radar:    repos.Radar,
		AIConfig: repos.AIConfig,
	}
}

func newLimiter(conf *core.Config, logger core.Logger) (LimiterResult, error) {
	limiter, closeFn, err := ratelimitsvc.New(conf, logger)
	if err != nil {
		return LimiterResult{}, err
	}
	return LimiterResult{Limiter: limiter, Close: closeFn}, nil
}

func newSealer(conf *core.Config) (*core.Sealer, error) {
	return core.NewSealer(conf.SecretKey)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Mail.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func reportServiceInterface(svc *report.Service) report.ServiceInterface {
	return svc
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		DB:         p.DB,
		Limiter:    p.Limiter,
		UserSvc:    p.UserSvc,
		ClassSvc:   p.ClassSvc,
		StudentSvc: p.StudentSvc,
		VideoSvc:   p.VideoSvc,
		ReportSvc:  p.ReportSvc,
		RadarSvc:   p.RadarSvc,
		AISvc:      p.AISvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newLimiter))
	must(c.Provide(newSealer))
	must(c.Provide(newEmailService))
	must(c.Provide(blobsvc.New))
	must(c.Provide(llmsvc.NewGemini, dig.As(new(ai.LLM))))
	must(c.Provide(validator.New))
	must(c.Provide(echoapi.NewTranslator))

	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(class.NewService, dig.As(new(class.ServiceInterface))))
	must(c.Provide(student.NewService, dig.As(new(student.ServiceInterface))))
	must(c.Provide(video.NewService, dig.As(new(video.ServiceInterface))))
	must(c.Provide(radar.NewService, dig.As(new(radar.ServiceInterface))))
	must(c.Provide(ai.NewService, dig.As(new(ai.ServiceInterface), new(report.Generator))))
	must(c.Provide(report.NewService))
	must(c.Provide(reportServiceInterface))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
