// Package app wires the shared dependencies of the binaries from the
// loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/cache"
	"github.com/gartstein/safework/internal/safework/config"
	"github.com/gartstein/safework/internal/safework/db"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap production logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

// DatabaseConfig maps the configuration onto the persistence settings.
func DatabaseConfig(cfg *config.Config) *db.Config {
	return &db.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
	}
}

// OpenRepository connects to the database and seeds the reference data and
// the bootstrap administrator.
func OpenRepository(ctx context.Context, cfg *config.Config, hasher *auth.Hasher, logger *zap.Logger) (*db.Repository, error) {
	repo, err := db.NewRepository(ctx, DatabaseConfig(cfg))
	if err != nil {
		return nil, err
	}

	admin, err := BootstrapAdmin(ctx, repo, cfg, hasher)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	if err := repo.Seed(ctx, admin); err != nil {
		_ = repo.Close()
		return nil, err
	}
	if admin != nil {
		logger.Info("Bootstrap administrator ensured", zap.String("email", admin.Email))
	}
	return repo, nil
}

// BootstrapAdmin returns the Root user described by the configuration, or
// nil when none is configured or a user with that email already exists.
func BootstrapAdmin(ctx context.Context, repo auth.UserStore, cfg *config.Config, hasher *auth.Hasher) (*models.User, error) {
	if cfg.AdminEmail == "" {
		return nil, nil
	}
	_, err := repo.GetUserByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		return nil, nil
	case !errors.Is(err, e.ErrNotFound):
		return nil, fmt.Errorf("failed to look up bootstrap administrator: %w", err)
	}

	if err := models.ValidatePassword(cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap administrator: %w", err)
	}
	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:                uuid.New(),
		Name:              cfg.AdminName,
		Email:             cfg.AdminEmail,
		PasswordHash:      hash,
		ProfileID:         models.ProfileRootID,
		ServiceProviderID: models.DefaultProviderID,
		Active:            true,
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap administrator: %w", err)
	}
	return u, nil
}

// OpenCache returns a Redis cache when REDIS_URL is set and a process-local
// one otherwise. The returned func releases it.
func OpenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("Using in-memory cache")
		return cache.NewMemory(ctx, cache.DefaultSweepInterval), func() {}, nil
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, "safework:")
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Redis cache")
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}, nil
}

// NewAuthService builds the authentication service over users.
func NewAuthService(cfg *config.Config, users auth.UserStore, hasher *auth.Hasher, c cache.Cache, logger *zap.Logger) (*auth.Service, error) {
	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return auth.NewService(users, issuer, hasher, c, auth.NewLogNotifier(logger), cfg.ResetTokenTTL, logger)
}

// WaitForShutdown blocks until an interrupt or SIGTERM is received or ctx
// ends.
func WaitForShutdown(ctx context.Context, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
}
