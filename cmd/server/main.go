package main

import (
	"fmt"
	"os"

	"anoa.com/venti/internal/bootstrap"
	"anoa.com/venti/internal/config"
	"anoa.com/venti/internal/server"
	"anoa.com/venti/pkg/database"
	"anoa.com/venti/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log.SugaredLogger.Desugar())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		log.Fatal("failed to seed roles", "error", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL", "error", err)
	}
	if redisClient == nil {
		log.Warn("REDIS_URL not set, running with process-local locks and no live notifications")
	}

	srv := server.NewServer(cfg, db, redisClient, log)

	log.Info("starting server", "port", cfg.Port, "env", cfg.AppEnv, "time_zone", cfg.TimeZone.String())
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatal("server exited with error", "error", err)
	}
}

func newRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
