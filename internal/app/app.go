package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/poofware/todo-service/internal/app/migrations"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/redis/go-redis/v9"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
	redisTimeout   = 2 * time.Second
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	// Redis is nil when REDIS_ADDR is unset or unreachable; callers fall
	// back to Postgres.
	Redis *redis.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, cfg.DBUrl)
		cancel()
		if err == nil {
			utils.Logger.Infof("Successfully connected to database on attempt %d", i)
			break
		}

		utils.Logger.WithError(err).Warnf(
			"Failed to connect to database on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	if cfg.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := ApplyMigrations(ctx, dbPool, migrations.FS); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	return &App{
		Config: cfg,
		DB:     dbPool,
		Redis:  NewRedisClient(cfg),
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("Database connection closed.")
	}
}

// newDBPool constructs the pgx pool with production‑safe settings.
//
//   • MaxConnIdleTime   – closes idle sockets before intermediaries do
//   • HealthCheckPeriod – background “SELECT 1” keeps every conn warm
func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.ConnectConfig(ctx, cfg)
}

// NewRedisClient returns a connected client, or nil when Redis is not
// configured or does not answer a ping.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		utils.Logger.Info("REDIS_ADDR not set; rate limits and token blacklist use Postgres only")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.Logger.WithError(err).Warn("Redis unreachable; continuing without it")
		_ = client.Close()
		return nil
	}
	utils.Logger.Infof("Connected to Redis at %s", cfg.RedisAddr)
	return client
}
