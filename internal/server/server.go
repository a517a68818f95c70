package server

import (
	"context"
	"strings"
	"time"

	"vigorfit.com/progressionengine/internal/config"
	"vigorfit.com/progressionengine/internal/middleware"
	"vigorfit.com/progressionengine/pkg/logger"

	badgeRepo "vigorfit.com/progressionengine/internal/modules/badge/repository"
	badgeService "vigorfit.com/progressionengine/internal/modules/badge/service"

	challengeHttp "vigorfit.com/progressionengine/internal/modules/challenge/delivery/http"
	challengeRepo "vigorfit.com/progressionengine/internal/modules/challenge/repository"
	challengeService "vigorfit.com/progressionengine/internal/modules/challenge/service"

	ledgerRepo "vigorfit.com/progressionengine/internal/modules/ledger/repository"
	ledgerService "vigorfit.com/progressionengine/internal/modules/ledger/service"

	progressionHttp "vigorfit.com/progressionengine/internal/modules/progression/delivery/http"
	progressionService "vigorfit.com/progressionengine/internal/modules/progression/service"

	rankRepo "vigorfit.com/progressionengine/internal/modules/rank/repository"
	rankService "vigorfit.com/progressionengine/internal/modules/rank/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   gocron.Scheduler
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	ledgerRepository := ledgerRepo.NewLedgerRepository(db)
	ledgerSvc := ledgerService.NewLedgerService(ledgerRepository)

	rankRepository := rankRepo.NewRankRepository(db)
	rankSvc := rankService.NewRankService(rankRepository)

	badgeRepository := badgeRepo.NewBadgeRepository(db)
	badgeSvc := badgeService.NewBadgeService(badgeRepository, ledgerSvc)

	challengeRepository := challengeRepo.NewChallengeRepository(db)
	challengeSvc := challengeService.NewChallengeService(db, challengeRepository, ledgerSvc, rankSvc, badgeSvc)

	progressionSvc := progressionService.NewProgressionService(
		db, ledgerSvc, rankSvc, badgeSvc, challengeSvc, challengeRepository,
		redisClient, cfg.SummaryCacheTTL, cfg.LeaderboardCacheTTL,
	)

	challengeHandler := challengeHttp.NewChallengeHandler(challengeSvc, progressionSvc)
	progressionHandler := progressionHttp.NewProgressionHandler(progressionSvc)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.AuditInterval),
		gocron.NewTask(func() {
			if err := ledgerSvc.Audit(context.Background()); err != nil {
				logger.L().Errorw("ledger audit run failed", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		api.GET("/challenges", challengeHandler.ListCatalog)
		api.POST("/challenges/:challenge_id/enroll", challengeHandler.Enroll)
		api.POST("/challenges/:challenge_id/days", challengeHandler.RecordDay)
		api.DELETE("/challenges/:challenge_id/days/:date", challengeHandler.UndoDay)

		api.GET("/progression/me", progressionHandler.GetMyProgression)
		api.GET("/members/:member_id/progression", progressionHandler.GetProgression)
		api.GET("/leaderboard", progressionHandler.GetLeaderboard)

		// Integration surface for subsystems that award XP outside
		// challenges (lesson completions, missions, onboarding).
		grants := api.Group("/xp")
		grants.Use(authMiddleware.RequireRole("service", "admin"))
		{
			grants.POST("/grants", progressionHandler.Grant)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireRole("admin"))
		{
			admin.POST("/challenges", challengeHandler.CreateChallenge)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
	}, nil
}

func (s *Server) Run(addr string) error {
	s.scheduler.Start()
	defer func() {
		if err := s.scheduler.Shutdown(); err != nil {
			logger.L().Warnw("scheduler shutdown failed", "error", err)
		}
	}()

	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
