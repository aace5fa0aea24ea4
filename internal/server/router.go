package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/flashstack/internal/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	CronSecret       string
	Sweeper          Sweeper
	Reviews          ReviewService
	Tests            TestService
	Stats            StatsReader
	MasteryThreshold int
	Now              func() time.Time
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &Handler{
		log:              cfg.Log.With("component", "http"),
		cronSecret:       cfg.CronSecret,
		sweeper:          cfg.Sweeper,
		reviews:          cfg.Reviews,
		tests:            cfg.Tests,
		stats:            cfg.Stats,
		masteryThreshold: cfg.MasteryThreshold,
		now:              cfg.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))

	router.GET("/healthcheck", HealthCheck)
	api := router.Group("/api")
	{
		api.GET("/check-streaks", h.CheckStreaks)
		api.POST("/check-streaks", h.CheckStreaks)

		api.POST("/reviews", h.SubmitReview)
		api.GET("/users/:id/due", h.DueCards)
		api.GET("/users/:id/stats", h.UserStats)

		api.POST("/stacks/:id/tests", h.CreateTest)
		api.POST("/tests/:id/submit", h.SubmitTest)
	}
	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
