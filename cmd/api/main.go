// Package main starts the marketplace auth API.
//
//	@title			Neurolearn Marketplace Auth API
//	@version		1.0
//	@BasePath		/
//	@securityDefinitions.apikey	BearerAuth
//	@in				header
//	@name			Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/neurolearn/marketplace/internal/api"
	"github.com/neurolearn/marketplace/internal/api/handler"
	"github.com/neurolearn/marketplace/internal/core/service"
	mongodb "github.com/neurolearn/marketplace/internal/infrastructure/db/mongo"
	redisdb "github.com/neurolearn/marketplace/internal/infrastructure/db/redis"
	"github.com/neurolearn/marketplace/internal/infrastructure/queue"
	"github.com/neurolearn/marketplace/internal/pkg/config"
	"github.com/neurolearn/marketplace/internal/pkg/i18n"
	"github.com/neurolearn/marketplace/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments inject the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Level: "info"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "marketplace-auth",
	})

	mongoCfg := mongodb.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		AuditRetention: cfg.Audit.Retention,
	}
	mongoClient, db, err := mongodb.Connect(ctx, mongoCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb unavailable")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := mongodb.Bootstrap(ctx, db, mongoCfg); err != nil {
		log.Fatal().Err(err).Msg("mongodb bootstrap failed")
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

	// --- Audit pipeline ---
	auditSvc := service.NewAuditService(mongodb.NewAuditRepository(db), logger.Component("audit"))
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditSvc, logger.Component("dispatcher"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	// --- Core ---
	authSvc, err := service.NewAuthService(
		mongodb.NewUserRepository(db),
		redisdb.NewTokenBlocklist(rdb),
		redisdb.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow),
		dispatcher,
		service.AuthConfig{
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		logger.Component("auth"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("auth service init failed")
	}

	// --- HTTP ---
	v := handler.NewValidator()
	catalog, err := i18n.New(v.Engine())
	if err != nil {
		log.Fatal().Err(err).Msg("i18n catalog init failed")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:      authSvc,
		Catalog:   catalog,
		Validator: v,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: logger.Component("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	stopWorkers()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
}
