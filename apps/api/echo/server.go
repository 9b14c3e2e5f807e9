package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
	"github.com/nkashama/tathmini/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		ClassSvc   *class.Service
		AsgSvc     *assignment.Service
		EvalSvc    *evaluation.Service
		Validate   *validator.Validate
		Translator ut.Translator

		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps         *ServerDeps
		app          *echo.Echo
		errChan      chan error
		shutdownChan chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps *ServerDeps) Server {
	initAuth(deps.Conf)

	s := &server{
		deps:         deps,
		app:          echo.New(),
		errChan:      make(chan error, 1),
		shutdownChan: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.deps)
	registerClassAPI(v1, jwt, s.deps)
	registerAssignmentAPI(v1, jwt, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerEvaluationAPI(v1, jwt, s.deps)
	registerJoinAPI(v1, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errChan <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errChan
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownChan
}

// signalShutdown is handed to the error handler so an integrity failure can
// trigger the same graceful-shutdown path as an OS signal.
func (s *server) signalShutdown() {
	s.shutdownChan <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tathmini API!")
}
