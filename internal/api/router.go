package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/api/handler"
	"github.com/travelog/partner-lifecycle/internal/api/middleware"
	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

// Deps bundles what the router needs. Services are built in main.
type Deps struct {
	Auth          ports.AuthService
	Partners      ports.PartnerService
	Webhooks      ports.WebhookService
	JWTSecret     string
	AuthRateLimit float64
	Checks        map[string]handler.Check
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echoprometheus.NewMiddleware("partner_http"))

	authHandler := handler.NewAuthHandler(d.Auth)
	partnerHandler := handler.NewPartnerHandler(d.Partners)
	webhookHandler := handler.NewWebhookHandler(d.Webhooks, d.Log)
	requireAuth := middleware.Auth(d.JWTSecret)
	limited := middleware.RateLimit(d.AuthRateLimit)

	// --- Payment provider callback (signature checked in the service) ---
	e.POST("/payosWebhook", webhookHandler.Payment)

	// --- Auth routes ---
	e.POST("/v1/auth/login", authHandler.Login, limited)
	e.POST("/v1/auth/register", authHandler.Register, requireAuth, middleware.RBAC(domain.RoleAdmin))

	// --- Partner routes ---
	e.POST("/v1/partners", partnerHandler.Register, limited)
	e.GET("/v1/partners/:id/status", partnerHandler.Status, requireAuth, middleware.RBAC(domain.RoleAdmin, domain.RolePartner))

	// --- Admin actions ---
	admin := e.Group("/v1/admin/accounts", requireAuth, middleware.RBAC(domain.RoleAdmin))
	admin.GET("", partnerHandler.List)
	admin.GET("/:id", partnerHandler.Get)
	admin.POST("/:id/approve", partnerHandler.Approve)
	admin.POST("/:id/reject", partnerHandler.Reject)
	admin.POST("/:id/activate", partnerHandler.Activate)
	admin.POST("/:id/toggle", partnerHandler.Toggle)
	admin.POST("/:id/resend", partnerHandler.Resend)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
