// Package config provides centralized configuration management for the
// dashboard, the demo backend and the CLI. It loads configuration from
// environment variables with sensible defaults and validates all settings on
// startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Table    TableConfig
	Rate     RateLimitConfig
	Export   ExportConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Backend  BackendConfig

	// Tables holds the optional per-entity table settings read from
	// Table.ConfigFile. Never nil after Load.
	Tables *TablesFile
}

// ServerConfig holds dashboard HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// APIConfig points the dashboard and CLI at the REST backend.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8081/api
	BaseURL string `env:"API_BASE_URL" envAlt:"API_URL" default:"http://localhost:8081/api"`

	// Timeout bounds every API call (default: 30s)
	Timeout time.Duration `env:"API_TIMEOUT" default:"30s"`

	// Key is sent as X-API-Key when set
	Key string `env:"API_KEY"`
}

// TableConfig holds data table defaults.
type TableConfig struct {
	// ItemsPerPage is the client-side table page size (default: 5)
	ItemsPerPage int `env:"TABLE_ITEMS_PER_PAGE" default:"5"`

	// ServerPerPage is the per_page sent to list endpoints (default: 15)
	ServerPerPage int `env:"TABLE_SERVER_PER_PAGE" default:"15"`

	// ConfigFile is an optional YAML file with per-entity overrides
	ConfigFile string `env:"TABLES_CONFIG"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// Burst is the token bucket size per IP (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// ExportConfig bounds concurrent CSV exports.
type ExportConfig struct {
	// MaxConcurrent is how many exports may run at once (default: 2)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long an export waits for a slot before failing (default: 10s)
	MaxWait time.Duration `env:"EXPORT_MAX_WAIT" default:"10s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey makes the backend reject /api requests without a valid X-API-Key
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of keys the backend accepts
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DatabaseConfig holds the demo backend's PostgreSQL settings. When URL is
// empty the backend keeps its data in memory.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// BackendConfig holds demo REST backend settings.
type BackendConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"BACKEND_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8081)
	Port int `env:"BACKEND_PORT" default:"8081"`

	// Reset empties every record kind on startup, before seeding (default: false)
	Reset bool `env:"BACKEND_RESET" default:"false"`

	// Seed loads demo records into an empty store on startup (default: true)
	Seed bool `env:"BACKEND_SEED" default:"true"`

	// AuditCapacity is how many audit entries are kept (default: 1000)
	AuditCapacity int `env:"BACKEND_AUDIT_CAPACITY" default:"1000"`

	// MaxPerPage caps the per_page a client may request (default: 100)
	MaxPerPage int `env:"BACKEND_MAX_PER_PAGE" default:"100"`

	// OverdueInterval is how often unpaid invoices past their due date are
	// marked overdue; 0 disables the sweep (default: 1h)
	OverdueInterval time.Duration `env:"BACKEND_OVERDUE_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr returns the backend listen address in host:port format.
func (c *BackendConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
