package services

import (
	"context"

	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/repositories"
)

// connectionService proxies connectivity checks and table listing to the
// metadata repository.
type connectionService struct {
	repo    repositories.MetadataRepository
	logger  Logger
	metrics MetricsCollector
}

// NewConnectionService creates a new connection service.
func NewConnectionService(repo repositories.MetadataRepository, logger Logger, metrics MetricsCollector) ConnectionService {
	return &connectionService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *connectionService) TestConnection(ctx context.Context, params models.ConnectionParams) error {
	timer := s.metrics.StartTimer("connection_test_duration_seconds")
	defer timer.Stop()

	if err := s.repo.Ping(ctx, params); err != nil {
		s.metrics.IncrementCounter("connection_tests_total", "status", "error")
		s.logger.Warn("Connection test failed", "host", params.Host, "database", params.Database, "error", err)
		return err
	}

	s.metrics.IncrementCounter("connection_tests_total", "status", "ok")
	s.logger.Info("Connection test succeeded", "host", params.Host, "database", params.Database)
	return nil
}

func (s *connectionService) ListTables(ctx context.Context, params models.ConnectionParams) ([]string, error) {
	timer := s.metrics.StartTimer("table_list_duration_seconds")
	defer timer.Stop()

	tables, err := s.repo.ListTables(ctx, params)
	if err != nil {
		s.metrics.IncrementCounter("table_lists_total", "status", "error")
		return nil, err
	}

	s.metrics.IncrementCounter("table_lists_total", "status", "ok")
	s.logger.Debug("Listed tables", "database", params.Database, "count", len(tables))
	return tables, nil
}
