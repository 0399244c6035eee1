package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/crowdcast/internal/auth"
	"github.com/pscheid92/crowdcast/internal/broadcast"
	"github.com/pscheid92/crowdcast/internal/config"
	"github.com/pscheid92/crowdcast/internal/domain"
	"github.com/pscheid92/crowdcast/internal/estimation"
	appredis "github.com/pscheid92/crowdcast/internal/redis"
)

// postgresHealthChecker is a minimal interface for PostgreSQL health checks
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	app         domain.AppService
	broadcaster *broadcast.Broadcaster
	dispatcher  *estimation.Dispatcher
	tokens      *auth.TokenService
	db          *pgxpool.Pool
	redisClient *appredis.Client // nil when Redis is not configured
	startTime   time.Time

	postgresHealthCheck postgresHealthChecker // test override
}

func NewServer(cfg *config.Config, app domain.AppService, broadcaster *broadcast.Broadcaster, dispatcher *estimation.Dispatcher, tokens *auth.TokenService, db *pgxpool.Pool, redisClient *appredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         app,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		tokens:      tokens,
		db:          db,
		redisClient: redisClient,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
