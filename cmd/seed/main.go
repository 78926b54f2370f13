// Package main provisions the first administrator account.
//
// Self-registration can never grant the admin role, so operators run this
// once against a fresh database:
//
//	SEED_ADMIN_EMAIL=ops@neurolearn.it SEED_ADMIN_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
	"github.com/neurolearn/marketplace/internal/core/service"
	mongodb "github.com/neurolearn/marketplace/internal/infrastructure/db/mongo"
	"github.com/neurolearn/marketplace/internal/pkg/config"
	"github.com/neurolearn/marketplace/pkg/logger"
)

type seedConfig struct {
	Email    string `env:"SEED_ADMIN_EMAIL, required"`
	Password string `env:"SEED_ADMIN_PASSWORD, required"`
	Name     string `env:"SEED_ADMIN_NAME, default=Administrator"`
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Init(logger.Options{Level: "info", Pretty: true, Service: "marketplace-seed"})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	var seed seedConfig
	if err := envconfig.Process(ctx, &seed); err != nil {
		log.Fatal().Err(err).Msg("invalid seed configuration")
	}

	mongoCfg := mongodb.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		AuditRetention: cfg.Audit.Retention,
	}
	client, db, err := mongodb.Connect(ctx, mongoCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb unavailable")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.Bootstrap(ctx, db, mongoCfg); err != nil {
		log.Fatal().Err(err).Msg("mongodb bootstrap failed")
	}

	// Provisioning needs neither the blocklist, the limiter nor the audit queue.
	authSvc, err := service.NewAuthService(mongodb.NewUserRepository(db), nil, nil, nil, service.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger.Component("auth"))
	if err != nil {
		log.Fatal().Err(err).Msg("auth service init failed")
	}

	user, err := authSvc.Provision(ctx, ports.RegisterInput{
		Email:    seed.Email,
		Password: seed.Password,
		Name:     seed.Name,
	}, domain.RoleAdmin)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		log.Info().Str("email", seed.Email).Msg("admin already exists, nothing to do")
	case err != nil:
		log.Fatal().Err(err).Msg("provision admin failed")
	default:
		log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("admin provisioned")
	}
}
