package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"postgres", s.checkPostgres},
		{"redis", s.checkRedis},
	}

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) checkPostgres(ctx context.Context) error {
	if s.postgresHealthCheck != nil {
		return s.postgresHealthCheck.Ping(ctx)
	}
	return s.db.Ping(ctx)
}

// checkRedis passes when Redis is not configured; the limiter is optional.
func (s *Server) checkRedis(ctx context.Context) error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.Ping(ctx)
}
