// Package monitor exposes health and metrics over HTTP.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	metrics *metrics.Metrics
	quota   *ratelimit.QuotaLimiter
}

// NewServer reports m and, when quota is not nil, provider quota usage.
func NewServer(m *metrics.Metrics, quota *ratelimit.QuotaLimiter) *Server {
	if m == nil {
		m = metrics.Global
	}
	return &Server{metrics: m, quota: quota}
}

// Router returns a gin engine with /health and /metrics registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", s.stats)
}

// health turns 503 once a cycle has failed fatally. Run returns right after
// that, so the 503 is visible only while the process shuts down.
func (s *Server) health(c *gin.Context) {
	stats := s.metrics.GetStats()

	status, code := "ok", http.StatusOK
	if healthy, _ := stats["is_healthy"].(bool); !healthy {
		status, code = "error", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"state":      stats["state"],
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) stats(c *gin.Context) {
	stats := s.metrics.GetStats()
	if s.quota != nil {
		stats["quota"] = s.quota.GetStats()
	}
	c.JSON(http.StatusOK, stats)
}

// ListenAndServe serves the router on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting monitoring server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("monitoring server stopped")
	return nil
}
