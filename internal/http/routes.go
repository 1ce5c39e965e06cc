package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// Generous per-IP budget for the webhook; Telegram delivers from a small
	// set of addresses and must never be throttled into redelivery storms.
	rateLimitRPS   = 30.0
	rateLimitBurst = 60
)

// SetupRoutes configures the webhook surface and its middleware.
func SetupRoutes(router *gin.Engine, env *Env, corsOrigin string, logger *slog.Logger) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.Sweep()
		}
	}()

	// One endpoint, all methods; the handler switches on method the way the
	// upstream transport expects (health probe on GET, update on POST).
	router.Any("/api/webhook", RateLimitMiddleware(limiter), env.Webhook)

	logger.Info("routes configured", "webhook", "/api/webhook")
}
