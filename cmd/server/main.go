// Package main provides the entry point for the Quarry dataset manager
// server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarryhq/quarry/cmd/server/config"
	"github.com/quarryhq/quarry/cmd/server/middleware"
	"github.com/quarryhq/quarry/pkg/handlers"
	"github.com/quarryhq/quarry/pkg/infrastructure/metrics"
	"github.com/quarryhq/quarry/pkg/infrastructure/pool"
	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/registry"
	"github.com/quarryhq/quarry/pkg/repositories/postgres"
	"github.com/quarryhq/quarry/pkg/services"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Quarry dataset manager server",
	Long: `A backend service for dataset management.

Quarry proxies PostgreSQL metadata and snapshot requests, validates SQL
query strings, runs data-quality checks, and maintains the public dataset
registry.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Quarry server",
	Long: `Start the Quarry server with the specified configuration.

Example:
  quarry serve --config ./config.yaml
  quarry serve --address 0.0.0.0:8000 --registry-file ./public_datasets.json`,
	RunE: runServer,
}

func init() {
	// Add serve command
	rootCmd.AddCommand(serveCmd)

	// Command flags
	serveCmd.Flags().StringP("config", "c", "", "config file path")
	serveCmd.Flags().String("address", "0.0.0.0:8000", "server listen address")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().String("registry-file", "public_datasets.json", "public dataset registry file")
	serveCmd.Flags().Bool("auth", false, "enable authentication")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().String("metrics-address", ":9090", "metrics server address")
	serveCmd.Flags().Bool("cors", true, "enable CORS headers")
	serveCmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	serveCmd.Flags().Duration("query-timeout", 30*time.Second, "default query timeout")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().String("db-host", "localhost", "default PostgreSQL host")
	serveCmd.Flags().Int("db-port", 5432, "default PostgreSQL port")
	serveCmd.Flags().String("db-name", "postgres", "default PostgreSQL database")
	serveCmd.Flags().String("db-user", "postgres", "default PostgreSQL user")
	serveCmd.Flags().String("db-password", "", "default PostgreSQL password")

	// Bind flags to viper
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("QUARRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quarry dataset manager server\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	// Load .env before viper reads the environment; a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logging
	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting Quarry server")

	// Create metrics collector
	var metricsCollector metrics.Collector
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewPrometheusCollector()
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	// Connection registry, shared by every database-facing service
	connRegistry := pool.NewRegistry(pool.Config{
		MaxConns:          cfg.ConnectionPool.MaxConns,
		MinConns:          cfg.ConnectionPool.MinConns,
		MaxConnLifetime:   cfg.ConnectionPool.ConnMaxLifetime,
		MaxConnIdleTime:   cfg.ConnectionPool.ConnMaxIdleTime,
		HealthCheckPeriod: cfg.ConnectionPool.HealthCheckPeriod,
		ConnectTimeout:    cfg.ConnectionPool.ConnectTimeout,
	}, logger.With().Str("component", "connection_registry").Logger())
	defer connRegistry.Close()

	mux := buildRouter(cfg, logger, metricsCollector, connRegistry)

	// Middleware chain, outermost first
	recoverMW := middleware.NewRecoveryMiddleware(logger.With().Str("component", "recovery_middleware").Logger())
	logMW := middleware.NewLoggingMiddleware(logger.With().Str("component", "logging_middleware").Logger())
	metricsMW := middleware.NewMetricsMiddleware(metricsCollector)
	corsMW := middleware.NewCORSMiddleware(cfg.CORS)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger.With().Str("component", "auth_middleware").Logger())

	handler := recoverMW.Handler(logMW.Handler(metricsMW.Handler(corsMW.Handler(authMW.Handler(mux)))))

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	// Start server
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Address).
			Bool("auth", cfg.Auth.Enabled).
			Str("registry_file", cfg.RegistryFile).
			Msg("Server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-shutdownCh:
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErrCh:
		return err
	}

	// Graceful shutdown
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	// Stop metrics server
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

// buildRouter wires repositories, services, and handlers onto the mux.
func buildRouter(cfg *config.Config, logger zerolog.Logger, metricsCollector metrics.Collector, connRegistry *pool.Registry) *http.ServeMux {
	metadataRepo := postgres.NewMetadataRepository(connRegistry, cfg.QueryTimeout, logger)

	connectionService := services.NewConnectionService(
		metadataRepo,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "connection_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)
	datasetService := services.NewDatasetService(
		metadataRepo,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "dataset_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	store := registry.NewFileStore(cfg.RegistryFile,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "registry_store").Logger()})
	registryService := services.NewRegistryService(
		store,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "registry_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	qualityService := services.NewQualityService(
		&serviceLoggerAdapter{logger: logger.With().Str("component", "quality_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	defaults := models.ConnectionParams{
		Host:     cfg.DefaultConnection.Host,
		Port:     cfg.DefaultConnection.Port,
		Database: cfg.DefaultConnection.Database,
		User:     cfg.DefaultConnection.User,
		Password: cfg.DefaultConnection.Password,
	}

	return handlers.NewRouter(handlers.Handlers{
		Health: handlers.NewHealthHandler(),
		Validate: handlers.NewValidateHandler(
			services.NewQueryClassifier(),
			&handlerLoggerAdapter{logger: logger.With().Str("component", "validate_handler").Logger()},
			&handlerMetricsAdapter{collector: metricsCollector},
		),
		Connection: handlers.NewConnectionHandler(
			connectionService, defaults,
			&handlerLoggerAdapter{logger: logger.With().Str("component", "connection_handler").Logger()},
			&handlerMetricsAdapter{collector: metricsCollector},
		),
		Dataset: handlers.NewDatasetHandler(
			datasetService, registryService, defaults,
			&handlerLoggerAdapter{logger: logger.With().Str("component", "dataset_handler").Logger()},
			&handlerMetricsAdapter{collector: metricsCollector},
		),
		Quality: handlers.NewQualityHandler(
			qualityService,
			&handlerLoggerAdapter{logger: logger.With().Str("component", "quality_handler").Logger()},
			&handlerMetricsAdapter{collector: metricsCollector},
		),
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Build configuration
	cfg := &config.Config{
		Address:         viper.GetString("address"),
		LogLevel:        viper.GetString("log-level"),
		RegistryFile:    viper.GetString("registry-file"),
		ReadTimeout:     viper.GetDuration("read-timeout"),
		WriteTimeout:    viper.GetDuration("write-timeout"),
		QueryTimeout:    viper.GetDuration("query-timeout"),
		ShutdownTimeout: viper.GetDuration("shutdown-timeout"),
		DefaultConnection: config.ConnectionConfig{
			Host:     viper.GetString("db-host"),
			Port:     viper.GetInt("db-port"),
			Database: viper.GetString("db-name"),
			User:     viper.GetString("db-user"),
			Password: viper.GetString("db-password"),
		},
		Auth: config.AuthConfig{
			Enabled: viper.GetBool("auth"),
		},
		Metrics: config.MetricsConfig{
			Enabled: viper.GetBool("metrics"),
			Address: viper.GetString("metrics-address"),
		},
		CORS: config.CORSConfig{
			Enabled:        viper.GetBool("cors"),
			AllowedOrigins: []string{"*"},
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		// Enable caller info for debug level
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	// Create logger with caller info for debug level
	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "quarry")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}

// Adapter implementations for different interface requirements

// serviceLoggerAdapter adapts zerolog.Logger to services.Logger.
type serviceLoggerAdapter struct {
	logger zerolog.Logger
}

func (l *serviceLoggerAdapter) Debug(msg string, keysAndValues ...interface{}) {
	logWith(l.logger.Debug(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	logWith(l.logger.Info(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	logWith(l.logger.Warn(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	logWith(l.logger.Error(), msg, keysAndValues)
}

// logWith attaches alternating key/value pairs to a zerolog event.
func logWith(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Interface(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1])
	}
	event.Msg(msg)
}

// serviceMetricsAdapter adapts metrics.Collector to services.MetricsCollector.
type serviceMetricsAdapter struct {
	collector metrics.Collector
}

func (m *serviceMetricsAdapter) IncrementCounter(name string, labels ...string) {
	m.collector.IncrementCounter(name, labels...)
}

func (m *serviceMetricsAdapter) RecordHistogram(name string, value float64, labels ...string) {
	m.collector.RecordHistogram(name, value, labels...)
}

func (m *serviceMetricsAdapter) RecordGauge(name string, value float64, labels ...string) {
	m.collector.RecordGauge(name, value, labels...)
}

func (m *serviceMetricsAdapter) StartTimer(name string) services.Timer {
	return m.collector.StartTimer(name)
}

// handlerLoggerAdapter adapts zerolog.Logger to handlers.Logger.
type handlerLoggerAdapter struct {
	logger zerolog.Logger
}

func (l *handlerLoggerAdapter) Debug(msg string, fields ...interface{}) {
	logWith(l.logger.Debug(), msg, fields)
}

func (l *handlerLoggerAdapter) Info(msg string, fields ...interface{}) {
	logWith(l.logger.Info(), msg, fields)
}

func (l *handlerLoggerAdapter) Warn(msg string, fields ...interface{}) {
	logWith(l.logger.Warn(), msg, fields)
}

func (l *handlerLoggerAdapter) Error(msg string, fields ...interface{}) {
	logWith(l.logger.Error(), msg, fields)
}

// handlerMetricsAdapter adapts metrics.Collector to handlers.MetricsCollector.
type handlerMetricsAdapter struct {
	collector metrics.Collector
}

func (m *handlerMetricsAdapter) IncrementCounter(name string, labels ...string) {
	m.collector.IncrementCounter(name, labels...)
}

func (m *handlerMetricsAdapter) RecordHistogram(name string, value float64, labels ...string) {
	m.collector.RecordHistogram(name, value, labels...)
}

func (m *handlerMetricsAdapter) RecordGauge(name string, value float64, labels ...string) {
	m.collector.RecordGauge(name, value, labels...)
}

func (m *handlerMetricsAdapter) StartTimer(name string) handlers.Timer {
	return m.collector.StartTimer(name)
}
