package server

import (
	"net/http"
	"strings"
	"time"

	"anoa.com/venti/internal/config"
	"anoa.com/venti/internal/middleware"
	"anoa.com/venti/pkg/logger"

	leaderboardHttp "anoa.com/venti/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "anoa.com/venti/internal/modules/leaderboard/repository"
	leaderboardService "anoa.com/venti/internal/modules/leaderboard/service"

	notiHttp "anoa.com/venti/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/venti/internal/modules/notification/repository"
	notifService "anoa.com/venti/internal/modules/notification/service"

	profileHttp "anoa.com/venti/internal/modules/profile/delivery/http"
	profileService "anoa.com/venti/internal/modules/profile/service"

	progressionHttp "anoa.com/venti/internal/modules/progression/delivery/http"
	progressionRepo "anoa.com/venti/internal/modules/progression/repository"
	progressionService "anoa.com/venti/internal/modules/progression/service"

	userRepo "anoa.com/venti/internal/modules/user/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer wires every module. redisClient may be nil, in which case locking
// is process-local, the leaderboard is uncached and notifications are not pushed.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}

	userRepo := userRepo.NewUserRepository(db)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, log)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, log)

	// Progression Module
	xpSvc := progressionService.NewXPService(
		progressionRepo.NewProgressionRepository(db),
		progressionService.NewLocker(redisClient, cfg.ProfileLockTTL),
		notificationSvc,
		log,
		progressionService.Config{
			Location:      cfg.TimeZone,
			RetryAttempts: cfg.XPRetryAttempts,
		},
	)
	xpHandler := progressionHttp.NewXPHandler(xpSvc)

	profileSvc := profileService.NewProfileService(userRepo, xpSvc, log)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	leaderboardSvc := leaderboardService.NewLeaderboardService(
		leaderboardRepo.NewLeaderboardRepository(db),
		leaderboardService.NewRedisCache(redisClient),
		cfg.LeaderboardCacheTTL,
		log,
		nil,
	)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/notifications/ws"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/xp/grant", xpHandler.GrantXP)
			adminGroup.POST("/xp/grant-all", xpHandler.GrantXPToAll)
			adminGroup.POST("/users/:id/badges", xpHandler.AwardBadge)
		}

		// XP routes
		protected.GET("/xp/me", xpHandler.GetMyStats)
		protected.GET("/xp/history", xpHandler.GetHistory)
		protected.GET("/xp/curve", xpHandler.GetCurve)
		protected.POST("/xp/login-streak", xpHandler.ClaimLoginStreak)

		// Activity routes
		protected.POST("/activity/sessions", xpHandler.StartSession)
		protected.POST("/activity/sessions/end", xpHandler.EndSession)

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.GET("/profile/:username", profileHandler.GetProfileByUsername)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
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
