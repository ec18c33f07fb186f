// Package config provides configuration structures for the dataset manager
// service.
package config

import (
	"fmt"
	"time"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Address         string        `yaml:"address" json:"address"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Public dataset registry file
	RegistryFile string `yaml:"registry_file" json:"registry_file"`

	// Default PostgreSQL connection, used when a request omits parameters
	DefaultConnection ConnectionConfig `yaml:"default_connection" json:"default_connection"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// CORS configuration
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`
}

// ConnectionConfig represents a PostgreSQL target.
type ConnectionConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Database string `yaml:"database" json:"database"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// AuthConfig represents authentication configuration.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Type    string `yaml:"type" json:"type"` // basic, bearer, jwt

	// Basic auth
	BasicAuth BasicAuthConfig `yaml:"basic_auth" json:"basic_auth"`

	// Bearer token auth
	BearerAuth BearerAuthConfig `yaml:"bearer_auth" json:"bearer_auth"`

	// JWT auth
	JWTAuth JWTAuthConfig `yaml:"jwt_auth" json:"jwt_auth"`
}

// BasicAuthConfig represents basic authentication configuration.
type BasicAuthConfig struct {
	Users map[string]UserInfo `yaml:"users" json:"users"`
}

// UserInfo represents user information.
type UserInfo struct {
	Password string   `yaml:"password" json:"password"`
	Roles    []string `yaml:"roles" json:"roles"`
}

// BearerAuthConfig represents bearer token authentication configuration.
type BearerAuthConfig struct {
	Tokens map[string]string `yaml:"tokens" json:"tokens"` // token -> username
}

// JWTAuthConfig represents JWT authentication configuration.
type JWTAuthConfig struct {
	Secret   string `yaml:"secret" json:"secret"`
	Issuer   string `yaml:"issuer" json:"issuer"`
	Audience string `yaml:"audience" json:"audience"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// CORSConfig represents CORS configuration. The frontend is served from a
// different origin in every deployment, so this defaults to allow-all.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// ConnectionPoolConfig represents connection pool configuration.
type ConnectionPoolConfig struct {
	MaxConns          int32         `yaml:"max_conns" json:"max_conns"`
	MinConns          int32         `yaml:"min_conns" json:"min_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" json:"health_check_period"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}

	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}

	if c.RegistryFile == "" {
		c.RegistryFile = "public_datasets.json"
	}

	// Validate auth
	if c.Auth.Enabled {
		switch c.Auth.Type {
		case "basic":
			if len(c.Auth.BasicAuth.Users) == 0 {
				return fmt.Errorf("basic auth requires users")
			}
		case "bearer":
			if len(c.Auth.BearerAuth.Tokens) == 0 {
				return fmt.Errorf("bearer auth requires tokens")
			}
		case "jwt":
			if c.Auth.JWTAuth.Secret == "" {
				return fmt.Errorf("JWT auth requires secret")
			}
		default:
			return fmt.Errorf("unsupported auth type: %s", c.Auth.Type)
		}
	}

	// Set defaults for connection pool
	if c.ConnectionPool.MaxConns <= 0 {
		c.ConnectionPool.MaxConns = 10
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.ConnectionPool.HealthCheckPeriod <= 0 {
		c.ConnectionPool.HealthCheckPeriod = 1 * time.Minute
	}
	if c.ConnectionPool.ConnectTimeout <= 0 {
		c.ConnectionPool.ConnectTimeout = 10 * time.Second
	}

	// Set defaults for metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0:8000",
		LogLevel:        "info",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		QueryTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RegistryFile:    "public_datasets.json",
		DefaultConnection: ConnectionConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
		},
		Auth: AuthConfig{
			Enabled: false,
			Type:    "bearer",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
			Path:    "/metrics",
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxConns:          10,
			MinConns:          0,
			ConnMaxLifetime:   30 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			HealthCheckPeriod: 1 * time.Minute,
			ConnectTimeout:    10 * time.Second,
		},
	}
}
