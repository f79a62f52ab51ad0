package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/classifier"
	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
)

type (
	// Deps holds the services the HTTP handlers depend on.
	Deps struct {
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       *user.Service
		PasswordReset *user.PasswordReset
		StudentSvc    *student.Service
		Classifier    *classifier.Service
	}

	Server struct {
		conf     *core.Config
		deps     *Deps
		app      *echo.Echo
		jwtConf  middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConf)

	registerUserAPI(v1, jwt, s.conf, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerAssessmentAPI(v1, jwt, s.deps)
}

// Start listens on conf.Server.Host and reports a failure on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
