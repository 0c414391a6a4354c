package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/handler"
	"github.com/quarkfin/qwallet-web/internal/api/middleware"
	"github.com/quarkfin/qwallet-web/internal/api/view"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Accounts ports.AccountService
	Store    ports.SessionStore
	// Backend names the session backend in readiness output.
	Backend      string
	CookieSecure bool
	SessionTTL   time.Duration
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) (*echo.Echo, error) {
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	cookies := middleware.CookieConfig{Secure: deps.CookieSecure, MaxAge: deps.SessionTTL}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(middleware.Session(cookies))
	e.Use(middleware.Guard(deps.Log))

	// --- Pages ---
	loginHandler := handler.NewLoginHandler(deps.Accounts, cookies, middleware.LandingPath, deps.Log)
	profileHandler := handler.NewProfileHandler(deps.Accounts, cookies, deps.Log)
	adminOnly := middleware.RequireRole(profileHandler.SessionLoader(), domain.RoleAdmin)

	e.GET(middleware.LoginPath, loginHandler.Show)
	e.POST(middleware.LoginPath, loginHandler.Submit)

	profile := e.Group(middleware.LandingPath)
	profile.GET("", profileHandler.Show)
	profile.POST("", profileHandler.Update)
	profile.POST("/users", profileHandler.CreateUser, adminOnly)

	// --- Health probes and metrics (outside the guard's paths) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Backend, deps.Store)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e, nil
}
