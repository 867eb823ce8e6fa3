package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jali/security/config"
	"github.com/jali/security/handlers"
	"github.com/jali/security/internal/auth"
	"github.com/jali/security/middleware"
	"github.com/jali/security/repositories"
	"github.com/jali/security/repositories/memory"
	"github.com/jali/security/repositories/postgres"
	"github.com/jali/security/services"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil for the memory store
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users repositories.UserRepository

	// Auth
	ClaimsPolicy *auth.ClaimsPolicy
	Codec        *auth.Codec
	AuthService  *services.AuthService

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initHTTP()

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Driver),
		zap.Duration("token_ttl", deps.ClaimsPolicy.TTL()))
	return deps, nil
}

// initStore selects the credential store backend
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		d.Users = memory.NewRepositories(d.Logger).Users
		d.Logger.Warn("using in-memory credential store, accounts are lost on restart")
		return nil

	case config.StoreDriverPostgres:
		factory, err := postgres.NewRepositoryFactory(ctx, cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}

		d.RepoFactory = factory
		d.DB = factory.GetDB()
		d.Users = factory.NewRepositories().Users

		d.Logger.Info("database connection established",
			zap.String("connection", cfg.Database.LogString()))
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initAuth builds the token codec and the authentication flow
func (d *Dependencies) initAuth(cfg *config.Config) error {
	policy, err := auth.NewClaimsPolicy(cfg.JWT.TTL)
	if err != nil {
		return err
	}

	var opts []auth.CodecOption
	if cfg.JWT.Issuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWT.Issuer))
	}
	codec, err := auth.NewCodec([]byte(cfg.JWT.Secret), policy, opts...)
	if err != nil {
		return err
	}

	hasher, err := services.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	svc, err := services.NewAuthService(d.Users, hasher, codec, d.Logger)
	if err != nil {
		return err
	}

	d.ClaimsPolicy = policy
	d.Codec = codec
	d.AuthService = svc
	return nil
}

func (d *Dependencies) initHTTP() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Codec, d.AuthService, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.AuthService, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.AuthService, d.Logger)

	checks := map[string]handlers.HealthChecker{}
	if d.DB != nil {
		checks["database"] = d.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(checks, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
