package main

import (
	"log"

	"github.com/redis/go-redis/v9"
	"vigorfit.com/progressionengine/internal/bootstrap"
	"vigorfit.com/progressionengine/internal/config"
	"vigorfit.com/progressionengine/internal/server"
	"vigorfit.com/progressionengine/pkg/database"
	"vigorfit.com/progressionengine/pkg/logger"
	"vigorfit.com/progressionengine/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.AppEnv)
	metrics.Register()

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedRanks(db); err != nil {
		log.Fatalf("failed to seed ranks: %v", err)
	}
	if err := bootstrap.SeedBadges(db); err != nil {
		log.Fatalf("failed to seed badges: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedChallenges(db); err != nil {
			log.Fatalf("failed to seed challenges: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	} else {
		logger.L().Warn("REDIS_URL not set, summary and leaderboard caching disabled")
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	logger.L().Infow("starting progression engine", "port", cfg.Port, "env", cfg.AppEnv)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
