// Package router wires handlers, the authorization gate and the rate
// limiter onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cargoflow/cargoflow/internal/auth"
	"github.com/cargoflow/cargoflow/internal/config"
	"github.com/cargoflow/cargoflow/internal/handler"
	"github.com/cargoflow/cargoflow/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Platform  *handler.PlatformHandler
	Company   *handler.CompanyHandler
	Warehouse *handler.WarehouseHandler
	Driver    *handler.DriverHandler
}

// Register mounts all routes. The authorization middleware is installed
// globally so it runs in front of every request; its policy decides which
// paths pass without credentials.
func Register(e *echo.Echo, h Handlers, codec *auth.Codec, sessions *auth.SessionManager, cfg config.Config, rdb *redis.Client) {
	e.Use(middleware.Authorize(codec, sessions, middleware.DefaultPolicy(), cfg.IsProd()))

	e.GET("/healthz", handler.Health)

	// Page stubs so the middleware's redirect targets resolve.
	e.GET("/login", handler.LoginPage)
	e.GET("/register", handler.RegisterPage)
	e.GET("/unauthorized", handler.UnauthorizedPage)

	// Credential endpoints sit behind the distributed rate limiter.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	authGroup := e.Group("/api/auth", limiter)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/me", h.Auth.Me)

	// Role-gated surfaces. The role checks live in the authorization
	// policy, not here; handlers only see requests the gate forwarded.
	e.GET("/platform/dashboard", h.Platform.Dashboard)
	e.GET("/api/platform/companies", h.Platform.ListCompanies)
	e.POST("/api/platform/companies", h.Platform.CreateCompany)

	e.GET("/company/dashboard", h.Company.Dashboard)
	e.GET("/api/company/warehouses", h.Company.ListWarehouses)
	e.POST("/api/company/warehouses", h.Company.CreateWarehouse)
	e.GET("/api/company/deliveries", h.Company.ListDeliveries)
	e.POST("/api/company/deliveries", h.Company.CreateDelivery)
	e.POST("/api/company/deliveries/:id/dispatch", h.Company.DispatchDelivery)

	e.GET("/warehouse/dashboard", h.Warehouse.Dashboard)
	e.POST("/api/warehouse/deliveries/:id/prepare", h.Warehouse.PrepareDelivery)

	e.GET("/driver/dashboard", h.Driver.Dashboard)
	e.POST("/api/driver/deliveries/:id/complete", h.Driver.CompleteDelivery)
}
