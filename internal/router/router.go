package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/refstore/referral-engine/internal/handler"
	"github.com/refstore/referral-engine/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the liveness check and the Prometheus
// scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and orchestration probes.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the operator login endpoint.  Login is the
// only unauthenticated admin operation; everything else under
// /v1/admin requires the token it issues.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/login", a.Login)
}

// RegisterReferral registers the storefront-facing referral endpoints.
// These are called by the checkout and bot subsystems, not by browsers,
// so they carry no session middleware.  The distribution endpoint is
// rate limited because checkout retries its webhook aggressively.
func RegisterReferral(e *echo.Echo, co *handler.CommissionHandler, re *handler.ReferralHandler, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.POST("/commissions/distribute", co.Distribute, rateLimit)
	g.POST("/referral/apply", re.Apply)
	g.POST("/referral/validate", re.Validate)
	g.GET("/referral/stats", re.Stats)
}

// RegisterAdmin registers the operator-only endpoints behind JWT and
// role checks.  The health report additionally goes through the Redis
// response cache because its probes touch every table.
func RegisterAdmin(e *echo.Echo, jwtSecret string, nw *handler.NetworkHandler, hr *handler.HealthReportHandler, el *handler.ErrorLogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.GET("/network/rebuild", nw.Rebuild)
	g.GET("/health-report", hr.Report, cache)
	g.GET("/error-logs", el.List)
}
