package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// ConnectMongo creates the client and pings it with bounded retries. When
// every attempt fails the client is still returned together with the last
// error: the driver reconnects lazily, so the caller may keep serving.
func ConnectMongo(ctx context.Context, cfg *Config, logger *slog.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(cfg.MongoConnectTimeout).
		SetServerSelectionTimeout(cfg.MongoServerSelectionTimeout).
		SetTimeout(cfg.MongoSocketTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	err = retry(ctx, cfg.DBConnectRetries, cfg.DBRetryDelay, logger, "mongo", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoServerSelectionTimeout)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	})
	if err != nil {
		return client, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

// InitDB opens the PostgreSQL pool and waits for it to answer.
func InitDB(ctx context.Context, cfg *Config, logger *slog.Logger) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	err = retry(ctx, cfg.DBConnectRetries, cfg.DBRetryDelay, logger, "postgres", db.PingContext)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, logger *slog.Logger, name string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			logger.Info("database connected", "backend", name, "attempt", attempt)
			return nil
		}
		logger.Warn("database connection failed",
			"backend", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// KeepTrying calls fn every delay until it succeeds or ctx is done. It is
// meant for setup steps the server can start without, such as indexes.
func KeepTrying(ctx context.Context, delay time.Duration, logger *slog.Logger, name string, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("setup step succeeded", "step", name, "attempt", attempt)
			}
			return nil
		}
		logger.Warn("setup step failed, will retry", "step", name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
