package http

import (
	"context"
	"net/http"

	"github.com/dkeye/confdemo/internal/adapters/signal"
	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// Deps are the parts of the application the admin API reads from.
type Deps struct {
	Conference *app.ConferenceRegistry
	Registry   *app.Registry
	Hub        *app.Hub
	Limiter    *signal.RateLimiter
	Feed       signal.FeedOptions
	Gatherer   prometheus.Gatherer
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/conference", func(c *gin.Context) {
		conf, ok, err := deps.Conference.Snapshot(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("conference snapshot")
			c.JSON(http.StatusBadGateway, gin.H{"error": "platform_error"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no conference yet"})
			return
		}
		c.JSON(http.StatusOK, conf)
	})

	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": deps.Registry.Snapshot()})
	})

	api.GET("/ws/events", func(c *gin.Context) {
		ctrl := signal.NewSignalWSController(deps.Hub, deps.Conference, deps.Limiter)
		ctrl.Options = deps.Feed
		log.Info().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("ws events endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
