package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/openmarket/auctiond/internal/cache"
	"github.com/openmarket/auctiond/internal/notify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("could not load .env file")
	}
	setupLogging()

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if dir := getEnv("MIGRATIONS_DIR", "migrations"); dir != "" {
		if err := runMigrations(database, dir); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient := setupRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	notifier, err := notify.Connect(getEnv("NATS_URL", "nats://localhost:4222"), getEnv("NOTIFY_SUBJECT_PREFIX", "marketplace.notify"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer notifier.Close()

	services := setupServices(database, redisClient, notifier, config)
	server := setupServer(services)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.ConnManager.Start(ctx)
	go services.Sweeper.Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("auction service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnv("LOG_PRETTY", "false") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// setupRedis is optional: with no REDIS_ADDR the service runs without view
// counters.
func setupRedis() *redis.Client {
	addr := getEnv("REDIS_ADDR", "")
	if addr == "" {
		log.Info().Msg("redis not configured, view counting disabled")
		return nil
	}

	client, err := cache.NewRedisClient(addr, getEnv("REDIS_PASSWORD", ""), getEnvAsInt("REDIS_DB", 0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return client
}
