package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity policy names accepted in SECURITY_IDENTITY_POLICY
const (
	IdentityCookie  = "cookie"
	IdentitySession = "session"
	IdentityJWT     = "jwt"
)

// Authorization policy names accepted in SECURITY_AUTHZ_POLICY
const (
	AuthzDictionary = "dictionary"
	AuthzDatabase   = "database"
	AuthzCasbin     = "casbin"
)

// Session store names accepted in SESSION_STORE
const (
	SessionStoreCookie   = "cookie"
	SessionStoreDatabase = "database"
)

// Database drivers accepted in DB_DRIVER
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Security      SecurityConfig
	Session       SessionConfig
	JWT           JWTConfig
	Demo          DemoConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database configuration. Driver selects postgres or sqlite.
// For postgres, ConnectionString (from DATABASE_URL) takes precedence over individual fields.
type DatabaseConfig struct {
	Driver           string
	SQLitePath       string
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SecurityConfig selects and tunes the identity and authorization policies
type SecurityConfig struct {
	IdentityPolicy   string
	AuthzPolicy      string
	CookieName       string
	CookieMaxAge     time.Duration
	SessionKey       string
	CasbinPolicyPath string // optional; the built-in demo policy is used when empty
}

// SessionConfig holds configuration for the session store backing the session identity policy
type SessionConfig struct {
	Store      string
	CookieName string
	HashKey    string
	BlockKey   string
	MaxAge     time.Duration
	Secure     bool
}

// JWTConfig holds configuration for bearer token identity
type JWTConfig struct {
	Secret        string
	Algorithm     string
	IdentityClaim string
	TTL           time.Duration
}

// DemoConfig controls the demo users
type DemoConfig struct {
	Seed     bool
	Password string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		},
		Database: loadDatabaseConfig(),
		Security: SecurityConfig{
			IdentityPolicy:   strings.ToLower(getEnv("SECURITY_IDENTITY_POLICY", IdentitySession)),
			AuthzPolicy:      strings.ToLower(getEnv("SECURITY_AUTHZ_POLICY", AuthzDictionary)),
			CookieName:       getEnv("SECURITY_COOKIE_NAME", "AIOHTTP_SECURITY"),
			CookieMaxAge:     getEnvAsDuration("SECURITY_COOKIE_MAX_AGE", 30*24*time.Hour),
			SessionKey:       getEnv("SECURITY_SESSION_KEY", "AIOHTTP_SECURITY"),
			CasbinPolicyPath: getEnv("CASBIN_POLICY_PATH", ""),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreCookie)),
			CookieName: getEnv("SESSION_COOKIE_NAME", "API_SESSION"),
			HashKey:    getEnv("SESSION_HASH_KEY", ""),
			BlockKey:   getEnv("SESSION_BLOCK_KEY", ""),
			MaxAge:     getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),
			Secure:     getEnvAsBool("SESSION_SECURE", false),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			Algorithm:     getEnv("JWT_ALGORITHM", "HS256"),
			IdentityClaim: getEnv("JWT_IDENTITY_CLAIM", "login"),
			TTL:           getEnvAsDuration("JWT_TTL", time.Hour),
		},
		Demo: DemoConfig{
			Seed:     getEnvAsBool("DEMO_SEED", true),
			Password: getEnv("DEMO_PASSWORD", "password"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Security.IdentityPolicy {
	case IdentityCookie, IdentitySession, IdentityJWT:
	default:
		return fmt.Errorf("unknown identity policy %q: want cookie, session or jwt", c.Security.IdentityPolicy)
	}

	switch c.Security.AuthzPolicy {
	case AuthzDictionary, AuthzDatabase, AuthzCasbin:
	default:
		return fmt.Errorf("unknown authorization policy %q: want dictionary, database or casbin", c.Security.AuthzPolicy)
	}

	if c.Security.IdentityPolicy == IdentityJWT && c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required for the jwt identity policy")
	}

	if c.Security.IdentityPolicy == IdentitySession {
		switch c.Session.Store {
		case SessionStoreCookie:
			// Cookie sessions must survive restarts in production
			if c.IsProduction() && c.Session.HashKey == "" {
				return fmt.Errorf("session hash key is required in production")
			}
			if n := len(c.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
				return fmt.Errorf("session block key must be 16, 24 or 32 bytes, got %d", n)
			}
		case SessionStoreDatabase:
		default:
			return fmt.Errorf("unknown session store %q: want cookie or database", c.Session.Store)
		}
	}

	if c.NeedsDatabase() {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// NeedsDatabase reports whether any selected component is backed by the database
func (c *Config) NeedsDatabase() bool {
	if c.Security.AuthzPolicy == AuthzDatabase {
		return true
	}
	return c.Security.IdentityPolicy == IdentitySession && c.Session.Store == SessionStoreDatabase
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Validate checks the driver-specific database settings
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DriverPostgres:
		if c.ConnectionString == "" && c.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.ConnectionString == "" {
			if c.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	default:
		return fmt.Errorf("unknown database driver %q: want postgres or sqlite", c.Driver)
	}
	return nil
}

// DSN returns the driver connection string.
// For postgres, uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("sqlite path=%s", c.SQLitePath)
	}
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DB_DRIVER plus DATABASE_URL, DB_* or SQLITE_PATH
func loadDatabaseConfig() DatabaseConfig {
	driver := strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	dbURL := getEnv("DATABASE_URL", "")
	if driver == DriverPostgres && dbURL != "" {
		return DatabaseConfig{
			Driver:           driver,
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Driver:          driver,
		SQLitePath:      getEnv("SQLITE_PATH", "websecurity.db"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "websecurity"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
