package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/LovationAdmin/finance-api/config"
	"github.com/LovationAdmin/finance-api/events"
	"github.com/LovationAdmin/finance-api/handlers"
	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/repository"
	"github.com/LovationAdmin/finance-api/routes"
	"github.com/LovationAdmin/finance-api/services"
	"github.com/LovationAdmin/finance-api/utils"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := utils.NewLogger(os.Stdout, utils.ParseLevel(cfg.LogLevel), utils.IsProduction(cfg.GinMode, cfg.Environment))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	ws := handlers.NewWSHandler(logger)
	defer ws.Close()

	publishers := events.Multi{ws}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			// Notifications are best-effort; the API works without the broker.
			logger.Warn("amqp publisher disabled", "error", err)
		} else {
			defer amqpPub.Close()
			publishers = append(publishers, amqpPub)
			logger.Info("publishing events to amqp", "exchange", cfg.AMQPExchange)
		}
	}

	var cipher *utils.Cipher
	if cfg.DataEncryptionKey != "" {
		if cipher, err = utils.NewCipher(cfg.DataEncryptionKey); err != nil {
			return fmt.Errorf("failed to init cipher: %w", err)
		}
	} else {
		logger.Warn("DATA_ENCRYPTION_KEY not set, two-factor authentication disabled")
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire)
	auth := services.NewAuthService(store.Users, tokens, cipher, cfg.TOTPIssuer, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	go limiter.Run(ctx)

	router := routes.NewRouter(routes.Options{
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimiter:  limiter,
		Auth:         auth,
		Transactions: services.NewTransactionService(store.Transactions, publishers, logger),
		Goals:        services.NewGoalService(store.Goals, publishers, logger),
		Budgets:      services.NewBudgetService(store.Budgets, publishers, logger),
		Reports:      services.NewReportService(store.Transactions, store.Goals, store.Budgets),
		WS:           ws,
		Debug:        handlers.NewDebugHandler(store, auth, store.Backend, cfg.Environment, cfg.JWTConfigured(), cfg.JWTExpireConfigured()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "backend", store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Store, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.BackendPostgres:
		db, err := config.InitDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database connected", "backend", cfg.DataBackend)
		return repository.NewPostgresStore(db), nil

	default:
		client, err := config.ConnectMongo(ctx, cfg, logger)
		if client == nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err != nil {
			logger.Error("mongo unreachable, serving anyway", "error", err)
		} else {
			logger.Info("database connected", "backend", cfg.DataBackend, "database", cfg.MongoDatabase)
		}

		// The unique email index backs registration; keep trying until it exists.
		go config.KeepTrying(ctx, cfg.DBRetryDelay, logger, "mongo indexes", func(ctx context.Context) error {
			return repository.EnsureIndexes(ctx, db)
		})
		return repository.NewMongoStore(client, db), nil
	}
}
