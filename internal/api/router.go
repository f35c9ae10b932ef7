package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/africtivistes/adisa/docs"
	"github.com/africtivistes/adisa/internal/api/handler"
	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/pkg/metrics"
)

// Dependencies is everything the router needs to serve the API.
type Dependencies struct {
	Log     zerolog.Logger
	Cookies middleware.Cookies
	// RateLimitPerMinute bounds the credential and token endpoints per client IP.
	RateLimitPerMinute int

	Auth        ports.AuthService
	Invitations ports.InvitationService
	TwoFactor   ports.TwoFactorService
	Accounts    ports.AccountService
	Enrollment  ports.EnrollmentTokens

	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(metrics.Middleware())
	e.Use(middleware.Session(deps.Auth, deps.Cookies))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookies)
	invitationHandler := handler.NewInvitationHandler(deps.Invitations, deps.Enrollment)
	twoFactorHandler := handler.NewTwoFactorHandler(deps.TwoFactor, deps.Enrollment)
	adminHandler := handler.NewAdminHandler(deps.Accounts)
	healthHandler := handler.NewHealthHandler(deps.Health)

	limit := middleware.RateLimit(deps.RateLimitPerMinute)

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/login", authHandler.Login, limit)
	api.GET("/logout", authHandler.Logout)
	api.POST("/logout", authHandler.Logout)
	api.GET("/auth/check", authHandler.Check)
	api.GET("/auth/user", authHandler.CurrentUser, middleware.RequireFullyVerified())

	// --- Invitation routes ---
	api.GET("/invitation/validate/:token", invitationHandler.Validate, limit)
	api.POST("/register", invitationHandler.Register, limit)

	// --- 2FA routes ---
	api.POST("/2fa/generate", twoFactorHandler.Generate, limit)
	api.POST("/2fa/verify", twoFactorHandler.Verify, limit)
	api.POST("/2fa/authenticate", twoFactorHandler.Authenticate, limit, middleware.RequireAuthenticated())

	// --- Admin routes (fully verified admin session) ---
	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.POST("/invite", invitationHandler.Invite)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id", adminHandler.UpdateUser)

	// --- Operations ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
