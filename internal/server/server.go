package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"media_gallery/internal/gallery"
	"media_gallery/internal/metrics"
	"media_gallery/internal/models"
	"media_gallery/internal/stats"
)

const (
	videoGalleryPath = "/api/v1/ai/video-gallery"
	imageGalleryPath = "/api/v1/ai/gallery"
	statsPath        = "/api/v1/ai/stats"
)

// Deps are the long-lived services the HTTP layer dispatches to. They are built
// once in main.
type Deps struct {
	Videos *gallery.Manager
	Images *gallery.Manager
	Stats  *stats.Aggregator
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	log    zerolog.Logger
}

func NewServer(cfg *models.Config, log zerolog.Logger, deps Deps) *Server {
	if gin.Mode() != gin.TestMode && cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	s := &Server{cfg: cfg, router: r, log: log}

	limits := gallery.PageLimits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	newGalleryHandler(deps.Videos, limits, "Video", log).register(r.Group(videoGalleryPath))
	newGalleryHandler(deps.Images, limits, "Image", log).register(r.Group(imageGalleryPath))
	r.GET(statsPath, newStatsHandler(deps.Stats, log).get)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains connections for at most the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.ServerAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.RecordRequest(c.Request.Method, endpoint, strconv.Itoa(status), elapsed.Seconds())

		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request")
	}
}
