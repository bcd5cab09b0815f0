// Package echoapi exposes the REST surface. Every handler delegates
// persistence, authentication and storage to the managed platform client and
// only keeps request shaping, authorization and tenant scoping here.
package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/auth"
	"github.com/kindredkids/compass/core/profile"
	notifysvc "github.com/kindredkids/compass/services/notify"
	smssvc "github.com/kindredkids/compass/services/sms"
	"github.com/kindredkids/compass/storage/supabase"
)

type (
	// TokenVerifier checks a bearer token and returns its claims; *auth.Verifier
	// in production, a stub in tests.
	TokenVerifier interface {
		Verify(ctx context.Context, token string) (*auth.Claims, error)
	}

	Options struct {
		Address        string
		Conf           *core.Config
		DisableReqLogs bool

		Store    *supabase.Client
		Verifier TokenVerifier
		Profiles *profile.Service
		Notifier *notifysvc.Notifier
		SMS      smssvc.Sender
		Logger   core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(ctx context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware())
	if !s.opts.DisableReqLogs {
		s.app.Use(requestLogMiddleware(s.opts.Logger))
	}
	s.app.Use(metricsMiddleware())
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete},
	}))
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.Validator = &appValidator{validate: core.Validate}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/health", health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group(conf.APIPrefix)
	authn := authnMiddleware(s.opts.Verifier, s.opts.Profiles)

	registerAuthAPI(v1, s.opts)
	registerCommonAPI(v1, authn, s.opts)
	registerAdminAPI(v1, authn, s.opts)
	registerTeacherAPI(v1, authn, s.opts)
	registerStorageAPI(v1, authn, s.opts)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

type appValidator struct {
	validate *validator.Validate
}

func (v appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
