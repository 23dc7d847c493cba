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

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/contact"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/matriculation"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/statuschange"
	"github.com/trezcool/dojo/core/training"
	"github.com/trezcool/dojo/core/user"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc          user.Service
	RoleSvc          *role.Service
	Resolver         *access.Resolver
	StatusFlow       *statuschange.Flow
	DisciplineSvc    *discipline.Service
	TrainingSvc      *training.Service
	MatriculationSvc *matriculation.Service
	ContactSvc       *contact.Service
	RateLimiter      core.RateLimiter

	DisableReqLogs bool
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	jwtConf  middleware.JWTConfig
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := s.deps.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := chain(middleware.JWTWithConfig(s.jwtConf), activeUserMiddleware(s.deps.UserSvc))
	gate := newGate(s.deps.UserSvc, s.deps.RoleSvc)
	rateLimit := rateLimitMiddleware(
		s.deps.RateLimiter, s.deps.Conf.Server.RateLimit, s.deps.Conf.Server.RateLimitWindow, s.deps.Logger,
	)

	registerUserAPI(v1, jwt, gate, rateLimit, s.deps)
	registerAccessAPI(v1, jwt, gate, s.deps)
	registerRoleAPI(v1, jwt, gate, s.deps)
	registerStatusChangeAPI(v1, jwt, gate, s.deps)
	registerDisciplineAPI(v1, jwt, gate, s.deps)
	registerTrainingAPI(v1, jwt, gate, s.deps)
	registerMatriculationAPI(v1, jwt, gate, s.deps)
	registerContactAPI(v1, jwt, gate, s.deps)
}

// Start blocks until the server stops; the outcome is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
