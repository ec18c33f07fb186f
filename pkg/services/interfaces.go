package services

import (
	"context"

	"github.com/quarryhq/quarry/pkg/models"
)

// Logger interface for services to avoid direct dependency on a logging
// implementation.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector interface for metrics collection.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer interface for timing operations.
type Timer interface {
	Stop() float64
}

// ConnectionService verifies connectivity and lists importable tables.
type ConnectionService interface {
	TestConnection(ctx context.Context, params models.ConnectionParams) error
	ListTables(ctx context.Context, params models.ConnectionParams) ([]string, error)
}

// DatasetService builds dataset snapshots from live tables.
type DatasetService interface {
	ImportTable(ctx context.Context, req models.TableImportRequest) (*models.Dataset, error)
}

// RegistryService manages the public dataset registry.
type RegistryService interface {
	List(ctx context.Context) ([]models.Dataset, error)
	Upsert(ctx context.Context, id string, dataset models.Dataset) error
	Delete(ctx context.Context, id string) error
}

// QueryValidationService classifies free-text SQL query strings.
type QueryValidationService interface {
	Classify(queryText string) models.ClassificationResult
}

// QualityService runs extended per-column data-quality checks.
type QualityService interface {
	Validate(ctx context.Context, req models.QualityRequest) ([]models.QualityCheck, error)
}
