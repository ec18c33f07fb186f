package services

import (
	"context"

	"github.com/quarryhq/quarry/pkg/models"
)

// DatasetStore is the persistence surface the registry service needs.
type DatasetStore interface {
	List() ([]models.Dataset, error)
	Upsert(id string, dataset models.Dataset) error
	Delete(id string) error
}

// registryService fronts the public dataset store with logging and metrics.
type registryService struct {
	store   DatasetStore
	logger  Logger
	metrics MetricsCollector
}

// NewRegistryService creates a new registry service.
func NewRegistryService(store DatasetStore, logger Logger, metrics MetricsCollector) RegistryService {
	return &registryService{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *registryService) List(ctx context.Context) ([]models.Dataset, error) {
	datasets, err := s.store.List()
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGauge("public_datasets", float64(len(datasets)))
	return datasets, nil
}

func (s *registryService) Upsert(ctx context.Context, id string, dataset models.Dataset) error {
	if err := s.store.Upsert(id, dataset); err != nil {
		s.metrics.IncrementCounter("registry_writes_total", "op", "upsert", "status", "error")
		return err
	}
	s.metrics.IncrementCounter("registry_writes_total", "op", "upsert", "status", "ok")
	s.logger.Info("Upserted public dataset", "id", id)
	return nil
}

func (s *registryService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		s.metrics.IncrementCounter("registry_writes_total", "op", "delete", "status", "error")
		return err
	}
	s.metrics.IncrementCounter("registry_writes_total", "op", "delete", "status", "ok")
	s.logger.Info("Deleted public dataset", "id", id)
	return nil
}
