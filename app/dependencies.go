package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/upb/websecurity/auth"
	"github.com/upb/websecurity/authz"
	"github.com/upb/websecurity/config"
	"github.com/upb/websecurity/identity"
	"github.com/upb/websecurity/middleware"
	"github.com/upb/websecurity/repositories"
	"github.com/upb/websecurity/repositories/sqldb"
	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/sessions"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sqldb.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *sqldb.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Sessions; SQLSessions is set only for the database store
	SessionStore sessions.Store
	SQLSessions  *sessions.SQLStore

	// Security
	Security       *security.App
	IdentityPolicy security.IdentityPolicy
	AuthzPolicy    security.AuthorizationPolicy
	Guard          *middleware.Guard

	// Auth
	Credentials auth.CredentialChecker
	TokenIssuer *auth.TokenIssuer
	AuthHandler *auth.Handler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Security: security.NewApp(),
		Guard:    middleware.NewGuard(logger),
	}

	if cfg.NeedsDatabase() {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if err := deps.initIdentity(ctx, cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize identity policy: %w", err)
	}

	if err := deps.initAuthorization(ctx, cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize authorization policy: %w", err)
	}

	if err := security.Setup(deps.Security, deps.IdentityPolicy, deps.AuthzPolicy); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to set up security: %w", err)
	}

	deps.AuthHandler = auth.NewHandler(deps.Credentials, deps.TokenIssuer, logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("identity_policy", cfg.Security.IdentityPolicy),
		zap.String("authz_policy", cfg.Security.AuthzPolicy))
	return deps, nil
}

// initDatabase opens the database, creates the schema and seeds the demo users
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := sqldb.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		d.closeDatabase()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		d.closeDatabase()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Users = repos.Users
	d.TxManager = factory.GetTransactionManager()

	if cfg.Demo.Seed {
		if err := sqldb.Seed(ctx, d.TxManager, d.Users, sqldb.DemoUsers, cfg.Demo.Password, d.Logger); err != nil {
			d.closeDatabase()
			return fmt.Errorf("failed to seed demo users: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initIdentity builds the identity policy selected by SECURITY_IDENTITY_POLICY
func (d *Dependencies) initIdentity(ctx context.Context, cfg *config.Config) error {
	switch cfg.Security.IdentityPolicy {
	case config.IdentityCookie:
		d.IdentityPolicy = identity.NewCookiePolicy(identity.CookieConfig{
			Name:   cfg.Security.CookieName,
			MaxAge: cfg.Security.CookieMaxAge,
		})

	case config.IdentitySession:
		if err := d.initSessionStore(ctx, cfg); err != nil {
			return err
		}
		d.IdentityPolicy = identity.NewSessionPolicy(d.SessionStore, cfg.Security.SessionKey)

	case config.IdentityJWT:
		jwtCfg := identity.JWTConfig{
			Secret:        cfg.JWT.Secret,
			Algorithm:     cfg.JWT.Algorithm,
			IdentityClaim: cfg.JWT.IdentityClaim,
		}
		policy, err := identity.NewJWTPolicy(jwtCfg)
		if err != nil {
			return err
		}
		issuer, err := auth.NewTokenIssuer(jwtCfg, cfg.JWT.TTL)
		if err != nil {
			return err
		}
		d.IdentityPolicy = policy
		d.TokenIssuer = issuer

	default:
		return fmt.Errorf("unknown identity policy %q", cfg.Security.IdentityPolicy)
	}

	d.Logger.Info("identity policy initialized", zap.String("policy", cfg.Security.IdentityPolicy))
	return nil
}

// initSessionStore builds the session store selected by SESSION_STORE
func (d *Dependencies) initSessionStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Session.Store == config.SessionStoreDatabase {
		store := sessions.NewSQLStore(d.DB.DB, cfg.Session.CookieName, cfg.Session.MaxAge, cfg.Session.Secure, d.Logger)
		if err := store.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize session schema: %w", err)
		}
		d.SessionStore = store
		d.SQLSessions = store
		return nil
	}

	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		// Sessions do not survive a restart
		d.Logger.Warn("SESSION_HASH_KEY not set, using a random key")
		hashKey = securecookie.GenerateRandomKey(64)
	}
	var blockKey []byte
	if cfg.Session.BlockKey != "" {
		blockKey = []byte(cfg.Session.BlockKey)
	}

	store, err := sessions.NewCookieStore(sessions.CookieStoreConfig{
		CookieName: cfg.Session.CookieName,
		HashKey:    hashKey,
		BlockKey:   blockKey,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.SessionStore = store
	return nil
}

// initAuthorization builds the authorization policy selected by
// SECURITY_AUTHZ_POLICY and the credential checker matching its users
func (d *Dependencies) initAuthorization(ctx context.Context, cfg *config.Config) error {
	switch cfg.Security.AuthzPolicy {
	case config.AuthzDictionary:
		hash, err := auth.HashPassword(cfg.Demo.Password)
		if err != nil {
			return err
		}
		policy := authz.NewDictionaryPolicy(authz.DemoUsers(hash))
		d.AuthzPolicy = policy
		d.Credentials = auth.NewDictionaryChecker(policy)

	case config.AuthzDatabase:
		if d.Users == nil {
			return fmt.Errorf("database authorization requires a database")
		}
		d.AuthzPolicy = authz.NewDatabasePolicy(d.Users, d.Logger)
		d.Credentials = auth.NewRepositoryChecker(d.Users)

	case config.AuthzCasbin:
		var (
			policy *authz.CasbinPolicy
			err    error
		)
		if cfg.Security.CasbinPolicyPath != "" {
			policy, err = authz.NewCasbinPolicy(cfg.Security.CasbinPolicyPath, d.Logger)
		} else {
			policy, err = authz.DemoCasbinPolicy(d.Logger)
		}
		if err != nil {
			return err
		}
		d.AuthzPolicy = policy

		checker, err := casbinCredentials(cfg.Demo.Password)
		if err != nil {
			return err
		}
		d.Credentials = checker

	default:
		return fmt.Errorf("unknown authorization policy %q", cfg.Security.AuthzPolicy)
	}

	d.Logger.Info("authorization policy initialized", zap.String("policy", cfg.Security.AuthzPolicy))
	return nil
}

// casbinCredentials checks logins of the accounts the demo casbin policy
// assigns roles to. Casbin keeps no passwords.
func casbinCredentials(password string) (*auth.DictionaryChecker, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	users := authz.DemoUsers(hash)
	for _, su := range sqldb.DemoUsers {
		users[su.Username] = authz.User{Username: su.Username, PasswordHash: hash}
	}
	return auth.NewDictionaryChecker(authz.NewDictionaryPolicy(users)), nil
}

// StartSessionCleanup periodically deletes expired server-side sessions until
// ctx is done. It does nothing unless the database session store is in use.
func (d *Dependencies) StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if d.SQLSessions == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := d.SQLSessions.Cleanup(ctx)
				if err != nil {
					d.Logger.Error("session cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					d.Logger.Info("expired sessions deleted", zap.Int64("count", n))
				}
			case <-ctx.Done():
				d.Logger.Info("stopping session cleanup")
				return
			}
		}
	}()
}

func (d *Dependencies) closeDatabase() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
		d.RepoFactory = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
