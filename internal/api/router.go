package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/neurolearn/marketplace/internal/api/docs"
	"github.com/neurolearn/marketplace/internal/api/handler"
	"github.com/neurolearn/marketplace/internal/api/middleware"
	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
	"github.com/neurolearn/marketplace/internal/pkg/i18n"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Auth      ports.AuthService
	Catalog   *i18n.Catalog
	Validator *handler.Validator
	// Checks are run by the readiness check, keyed by dependency name.
	Checks map[string]handler.DependencyCheck
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = deps.Validator
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Catalog, deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(middleware.Metrics())
	e.Use(middleware.ClientIP())

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Checks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	requireAuth := middleware.Auth(deps.Auth)
	auth.POST("/logout", authHandler.Logout, requireAuth)
	auth.GET("/profile", authHandler.Profile, requireAuth)
	auth.PATCH("/profile", authHandler.UpdateProfile, requireAuth)
	auth.POST("/change-password", authHandler.ChangePassword, requireAuth)
	auth.DELETE("/delete-account", authHandler.DeleteAccount, requireAuth)

	canManageUsers := middleware.Require(func(p domain.Permissions) bool { return p.CanManageUsers })
	auth.GET("/admin/users", authHandler.ListUsers, requireAuth, canManageUsers)
	auth.PATCH("/admin/users/:id", authHandler.UpdateAccess, requireAuth, middleware.RBAC(domain.RoleAdmin))

	return e
}
