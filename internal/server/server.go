// Package server exposes the health endpoint and, in webhook mode, the
// Telegram update endpoint over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the binding store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	// WebhookPath and Webhook are both set in webhook mode.
	WebhookPath string
	Webhook     http.Handler
}

// NewRouter builds the gin engine with /healthz and the optional webhook route.
func NewRouter(store Pinger, opts Options, logger *slog.Logger) *gin.Engine {
	log := logger.With("component", "http")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", healthHandler(store, log))
	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.POST(opts.WebhookPath, gin.WrapH(opts.Webhook))
		log.Info("Webhook route registered", "path", opts.WebhookPath)
	}
	return r
}

// New wraps the router in an http.Server listening on addr.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthHandler(store Pinger, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.WarnContext(ctx, "Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
