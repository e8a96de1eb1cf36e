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
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
	metricsvc "github.com/trezcool/karo/services/metrics"
)

// ServerDeps holds everything the HTTP handlers need.
type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    user.Service
	ClassSvc   class.Service
	StudentSvc student.Service
	Recorder   *payment.Recorder
	Sessions   *payment.Sessions
	Ledger     *payment.Ledger
	Reports    *report.Service
	Metrics    *metricsvc.Collector // optional
}

type Server struct {
	conf     *core.Config
	app      *echo.Echo
	shutdown chan os.Signal
	errors   chan error
}

func NewServer(deps ServerDeps) (*Server, error) {
	renderer, err := newPageRenderer()
	if err != nil {
		return nil, errors.Wrap(err, "parsing page templates")
	}

	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = deps.Conf.Server.WriteTimeout
	s.app.Renderer = renderer
	s.setup(deps)
	return s, nil
}

func (s *Server) setup(deps ServerDeps) {
	debug := s.conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = debug

	registerPages(s.app, deps)

	v1 := s.app.Group("/v1", tokenFromCookie)
	jwt := middleware.JWTWithConfig(newJWTConfig(s.conf))

	registerAuthAPI(v1, jwt, deps)
	registerDashboardAPI(v1, jwt, deps)
	registerScanAPI(v1, jwt, deps)
	registerPaymentAPI(v1, jwt, deps)
	registerReportAPI(v1, jwt, deps)
	registerClassAPI(v1, jwt, deps)
	registerStudentAPI(v1, jwt, deps)
	registerStaffAPI(v1, jwt, deps)
}

// Start serves in the background; a failure is sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		if err := s.app.Start(s.conf.Server.Address()); err != nil && err != http.ErrServerClosed {
			s.errors <- err
		}
	}()
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives OS signals and the shutdown requests of the handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

// Shutdown stops the server gracefully.
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
