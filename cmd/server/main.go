package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/crowdcast/internal/app"
	"github.com/pscheid92/crowdcast/internal/auth"
	"github.com/pscheid92/crowdcast/internal/broadcast"
	"github.com/pscheid92/crowdcast/internal/config"
	"github.com/pscheid92/crowdcast/internal/database"
	"github.com/pscheid92/crowdcast/internal/estimation"
	"github.com/pscheid92/crowdcast/internal/logging"
	"github.com/pscheid92/crowdcast/internal/redis"
	"github.com/pscheid92/crowdcast/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

// setupRedis connects to Redis when configured. Returns nil when REDIS_URL
// is unset; voting then runs unthrottled.
func setupRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		slog.Info("Redis not configured, vote rate limiting disabled")
		return nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster, pool *pgxpool.Pool, redisClient *redis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()
		pool.Close()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Redis close error", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)

	redisClient := setupRedis(cfg)

	// Construct repositories
	userRepo := database.NewUserRepository(pool)
	roomRepo := database.NewRoomRepository(pool)
	questionRepo := database.NewQuestionRepository(pool)
	voteRepo := database.NewVoteRepository(pool)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, clock)
	if err != nil {
		slog.Error("Failed to create token service", "error", err)
		os.Exit(1)
	}

	appSvc := app.NewService(userRepo, roomRepo, questionRepo, tokens)

	broadcaster := broadcast.NewBroadcaster(clock, cfg.MaxClientsPerRoom)

	var limiter estimation.VoteLimiter
	if redisClient != nil {
		limiter = redis.NewVoteRateLimiter(redisClient, clock, cfg.VoteRateCapacity, cfg.VoteRatePerMinute)
	}

	aggregator := estimation.NewAggregator(voteRepo, questionRepo, cfg.VotePolicy)
	dispatcher := estimation.NewDispatcher(broadcaster, aggregator, questionRepo, roomRepo, limiter)

	srv := server.NewServer(cfg, appSvc, broadcaster, dispatcher, tokens, pool, redisClient)

	done := runGracefulShutdown(srv, broadcaster, pool, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
