// Package ops exposes the operational sidecar: Prometheus metrics and a
// health probe, on a separate port from the participant API.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"lunch-queue/utils"
)

type Server struct {
	redis *redis.Client
	srv   *http.Server
}

func NewServer(redisClient *redis.Client) *Server {
	e := echo.New()

	s := &Server{redis: redisClient}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", s.health)

	s.srv = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) health(c echo.Context) error {
	if err := utils.RedisHealthCheck(s.redis); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// Start blocks serving on the given port until the listener fails or
// Shutdown is called.
func (s *Server) Start(port string) error {
	s.srv.Addr = ":" + port
	slog.Info("ops server listening", "port", port)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
