package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes (public)
	s.echo.POST("/auth/register", s.handleRegister)
	s.echo.POST("/auth/token", s.handleToken)

	// Room routes (authenticated)
	s.echo.POST("/rooms", s.handleCreateRoom, s.requireAuth)
	s.echo.GET("/rooms/created/mine", s.handleListOwnRooms, s.requireAuth)
	s.echo.GET("/rooms/:code", s.handleGetRoom, s.requireAuth)
	s.echo.GET("/rooms/:code/questions", s.handleListQuestions, s.requireAuth)
	s.echo.PUT("/rooms/:id/activate", s.handleActivateRoom, s.requireAuth)
	s.echo.PUT("/rooms/:id/deactivate", s.handleDeactivateRoom, s.requireAuth)

	// User routes (authenticated)
	s.echo.GET("/users/:id", s.handleGetUser, s.requireAuth)

	// WebSocket route (token passed as query parameter)
	s.echo.GET("/ws/rooms/:code", s.handleWebSocket)
}
