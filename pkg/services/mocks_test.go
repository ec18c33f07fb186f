package services

import (
	"context"

	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/repositories"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type nopTimer struct{}

func (nopTimer) Stop() float64 { return 0 }

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, ...string)        {}
func (nopMetrics) RecordHistogram(string, float64, ...string) {}
func (nopMetrics) RecordGauge(string, float64, ...string)     {}
func (nopMetrics) StartTimer(string) Timer                    { return nopTimer{} }

// fakeMetadataRepository is a scripted repository for service tests.
type fakeMetadataRepository struct {
	pingErr  error
	tables   []string
	listErr  error
	snapshot *repositories.TableSnapshot
	snapErr  error

	lastTable string
	lastLimit int
}

func (f *fakeMetadataRepository) Ping(ctx context.Context, params models.ConnectionParams) error {
	return f.pingErr
}

func (f *fakeMetadataRepository) ListTables(ctx context.Context, params models.ConnectionParams) ([]string, error) {
	return f.tables, f.listErr
}

func (f *fakeMetadataRepository) SnapshotTable(ctx context.Context, params models.ConnectionParams, table string, limit int) (*repositories.TableSnapshot, error) {
	f.lastTable = table
	f.lastLimit = limit
	return f.snapshot, f.snapErr
}

// fakeDatasetStore is an in-memory DatasetStore.
type fakeDatasetStore struct {
	datasets  map[string]models.Dataset
	upsertErr error
	deleteErr error
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{datasets: map[string]models.Dataset{}}
}

func (f *fakeDatasetStore) List() ([]models.Dataset, error) {
	out := make([]models.Dataset, 0, len(f.datasets))
	for _, d := range f.datasets {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDatasetStore) Upsert(id string, dataset models.Dataset) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.datasets[id] = dataset
	return nil
}

func (f *fakeDatasetStore) Delete(id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.datasets, id)
	return nil
}
