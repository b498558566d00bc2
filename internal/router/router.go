package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/handler"
	"github.com/jok6r1/src-diplom/internal/middleware"
)

// Handlers gathers every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Traffic *handler.TrafficHandler
	Hidden  *handler.HiddenIPHandler
	Admin   *handler.AdminHandler
	Files   *handler.FilesHandler
}

// Register wires middleware and all application routes onto the Echo
// instance. CORS is restricted to the configured front-end origins with
// credentials allowed; rate limiting applies to the whole API and the
// response cache only to the hot read routes the dashboard polls.
//
// Most routes are intentionally unauthenticated: the reporting agent and the
// polling front-end do not carry tokens. The administrative SQL surface is
// the exception and sits behind JWT auth with the admin role.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Accounts
	e.POST("/register", h.Auth.Register)
	e.POST("/login", h.Auth.Login)
	e.GET("/getUsers", h.Auth.GetUsers)
	e.GET("/check-user", h.Auth.CheckUser)

	// Suppressed IPs
	e.GET("/hide_ip", h.Hidden.List)

	// Traffic ingestion and queries
	e.POST("/anomalies", h.Traffic.Ingest)
	e.GET("/traffic/user/:userId", h.Traffic.ByUser)
	e.GET("/traffic/ip/:ip", h.Traffic.ByIP)
	e.GET("/anomalies/last15min", h.Traffic.Recent, cache)
	e.GET("/traffic/:id", h.Traffic.ByID)
	e.GET("/users-and-traffic", h.Traffic.UsersAndTraffic, cache)
	e.GET("/latest-traffic", h.Traffic.Latest, cache)

	// Administrative SQL surface: operator-only
	admin := e.Group("/execute-sql",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole("admin"),
	)
	admin.POST("", h.Admin.ExecuteSQL)
	admin.GET("/check-connection", h.Admin.CheckConnection)

	// Installer artifacts
	e.GET("/list-files", h.Files.List)
	e.GET("/download/:filename", h.Files.Download)
}
