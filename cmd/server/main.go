package main // Entry point package

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/database"
	"github.com/jok6r1/src-diplom/internal/handler"
	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/queue"
	"github.com/jok6r1/src-diplom/internal/repository"
	"github.com/jok6r1/src-diplom/internal/router"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		logger.Log.Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	database.EnsureSchema(schemaCtx, db)
	cancel()

	rdb := config.NewRedisClient() // nil when Redis is unavailable; middleware degrades to pass-through

	go queue.StartAnomalyConsumer()

	users := repository.NewUserRepo(db)
	traffic := repository.NewTrafficRepo(db)
	hidden := repository.NewHiddenIPRepo(db)
	admin := repository.NewAdminRepo(db)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, cfg, rdb, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users),
		Traffic: handler.NewTrafficHandler(cfg, traffic, users),
		Hidden:  handler.NewHiddenIPHandler(cfg, hidden),
		Admin:   handler.NewAdminHandler(cfg, admin),
		Files:   handler.NewFilesHandler(cfg.FilesDir),
	})

	addr := ":" + cfg.Port
	logger.Log.Infow("listening", "addr", addr, "env", cfg.Env)

	if err := e.Start(addr); err != nil {
		logger.Log.Fatalw("server stopped", "error", err)
	}
}
