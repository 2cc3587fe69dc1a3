package echoapi

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
	ratelimitsvc "github.com/Ing-la/future-navigator/services/ratelimit"
	"github.com/Ing-la/future-navigator/storage/database"
)

type ServerDeps struct {
	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	DB             *sql.DB // nil with the memory engine
	Limiter        ratelimitsvc.Limiter
	DisableReqLogs bool

	UserSvc    user.ServiceInterface
	ClassSvc   class.ServiceInterface
	StudentSvc student.ServiceInterface
	VideoSvc   video.ServiceInterface
	ReportSvc  report.ServiceInterface
	RadarSvc   radar.ServiceInterface
	AISvc      ai.ServiceInterface
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Tracing.Enabled {
		s.app.Use(tracingMiddleware())
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowOrigins}))

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	g.GET("/health", s.health)
	s.registerAuthAPI(g, jwt)
	s.registerUserAPI(g, jwt)
	s.registerClassAPI(g, jwt)
	s.registerStudentAPI(g, jwt)
	s.registerVideoAPI(g, jwt)
	s.registerReportAPI(g, jwt)
	s.registerRadarAPI(g, jwt)
	s.registerAIAPI(g, jwt)
}

func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Host)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the app to stop gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

type (
	healthDatabase struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	healthEnvironment struct {
		Configured bool            `json:"configured"`
		Missing    []string        `json:"missing"`
		Details    map[string]bool `json:"details"`
	}

	HealthResponse struct {
		Success     bool              `json:"success"`
		Timestamp   time.Time         `json:"timestamp"`
		Environment healthEnvironment `json:"environment"`
		Database    healthDatabase    `json:"database"`
		Build       string            `json:"build"`
	}
)

const (
	dbConnected    = "connected"
	dbError        = "error"
	dbUnconfigured = "unconfigured"
)

func (s *Server) health(ctx echo.Context) error {
	conf := s.deps.Conf
	env := conf.EnvStatus()

	dbHealth := healthDatabase{Status: dbUnconfigured, Message: "database is not configured"}
	switch {
	case s.deps.DB != nil:
		c, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
		defer cancel()
		if err := database.StatusCheck(c, s.deps.DB); err != nil {
			dbHealth = healthDatabase{Status: dbError, Message: err.Error()}
		} else {
			dbHealth = healthDatabase{Status: dbConnected, Message: "database connection ok"}
		}
	case conf.Database.Engine == core.DBEngineMemory:
		dbHealth = healthDatabase{Status: dbConnected, Message: "in-memory database"}
	}

	return ctx.JSON(http.StatusOK, HealthResponse{
		Success:     true,
		Timestamp:   time.Now().UTC(),
		Environment: healthEnvironment{Configured: env.Configured, Missing: env.Missing, Details: env.Details},
		Database:    dbHealth,
		Build:       conf.Build,
	})
}
