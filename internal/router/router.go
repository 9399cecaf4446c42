package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/calyxcontainers/scar-service/internal/config"
	"github.com/calyxcontainers/scar-service/internal/handler"
	"github.com/calyxcontainers/scar-service/internal/middleware"
	"github.com/calyxcontainers/scar-service/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes and the authenticated
// account endpoints. Unauthenticated operations live under /v1/auth and
// are rate limited per client IP; /v1/me and the password change
// require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rlCfg config.RateLimitConfig, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/v1/auth")
	// Credential endpoints are the brute-force surface, so the token
	// bucket applies to the whole group.
	g.Use(middleware.RateLimit(rlCfg, rdb))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSupplier))
	auth.GET("/me", a.Me)
	auth.PUT("/me/password", a.ChangePassword)
}

// RegisterVendors registers the public vendor listing plus the admin
// directory management endpoints.
func RegisterVendors(e *echo.Echo, v *handler.VendorHandler, jwtSecret string) {
	// The registration form needs vendor names before a session exists.
	e.GET("/v1/vendors", v.ListPublic)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/vendors", v.List)
	admin.POST("/vendors", v.Create)
	admin.GET("/vendors/:id", v.Get)
	admin.PUT("/vendors/:id", v.Update)
	admin.DELETE("/vendors/:id", v.Delete)
	admin.GET("/vendors/:id/contacts", v.ListContacts)
	admin.POST("/vendors/:id/contacts", v.CreateContact)
	admin.PUT("/vendors/:id/contacts/:contactId", v.UpdateContact)
	admin.DELETE("/vendors/:id/contacts/:contactId", v.DeleteContact)
}

// RegisterScars registers the SCAR workflow endpoints. All of them
// require a session; role and vendor scoping happen inside the
// workflow engine rather than in route middleware, because supplier
// access depends on which vendor owns the record.
func RegisterScars(e *echo.Echo, s *handler.ScarHandler, cacheCfg config.CacheConfig, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSupplier))

	g.POST("/scars", s.Create)
	g.GET("/scars", s.List, middleware.CacheGET(cacheCfg, rdb))
	g.GET("/scars/:id", s.Get)
	g.PUT("/scars/:id/sections/:section", s.EditSection)
	g.POST("/scars/:id/submit", s.Submit)
	g.POST("/scars/:id/verify", s.Verify)
	g.GET("/scars/:id/activity", s.Activity)
	g.GET("/stats", s.Stats, middleware.CacheGET(cacheCfg, rdb))
}

// RegisterUserAdmin registers account administration endpoints behind
// the admin role check.
func RegisterUserAdmin(e *echo.Echo, u *handler.UserAdminHandler, jwtSecret string) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", u.List)
	admin.GET("/users/pending-count", u.PendingCount)
	admin.POST("/users", u.Create)
	admin.POST("/users/:id/approve", u.Approve)
	admin.POST("/users/:id/reject", u.Reject)
	admin.PUT("/users/:id/password", u.SetPassword)
	admin.DELETE("/users/:id", u.Delete)
}
