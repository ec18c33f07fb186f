// Package registry implements the JSON file-backed public dataset store.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/models"
)

// Logger interface for the store to avoid direct dependency on a logging
// implementation.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// FileStore persists public datasets as a single flat JSON object keyed by
// dataset id. Every write rewrites the whole file; concurrent writers from
// other processes race with last-write-wins semantics. Within the process a
// mutex serializes the read-modify-write cycle.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

// NewFileStore creates a store backed by the file at path. The file is
// created lazily on first write.
func NewFileStore(path string, logger Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// load reads the registry file. A missing, unreadable, or corrupt file
// degrades to an empty registry so one bad write never bricks the API.
func (s *FileStore) load() map[string]models.Dataset {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read registry file, starting empty", "path", s.path, "error", err)
		}
		return map[string]models.Dataset{}
	}

	datasets := map[string]models.Dataset{}
	if err := json.Unmarshal(data, &datasets); err != nil {
		s.logger.Warn("Registry file is not valid JSON, starting empty", "path", s.path, "error", err)
		return map[string]models.Dataset{}
	}
	return datasets
}

func (s *FileStore) save(datasets map[string]models.Dataset) error {
	data, err := json.MarshalIndent(datasets, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to encode registry")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeStorageFailed, "failed to create registry directory")
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to write registry file")
	}
	return nil
}

// List returns all datasets sorted by id.
func (s *FileStore) List() ([]models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.load()
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	datasets := make([]models.Dataset, 0, len(ids))
	for _, id := range ids {
		datasets = append(datasets, byID[id])
	}
	return datasets, nil
}

// Upsert stores dataset under id, replacing any existing entry.
func (s *FileStore) Upsert(id string, dataset models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	datasets := s.load()
	datasets[id] = dataset
	return s.save(datasets)
}

// Delete removes the dataset with the given id. Deleting an unknown id
// returns ErrDatasetNotFound.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	datasets := s.load()
	if _, ok := datasets[id]; !ok {
		return errors.ErrDatasetNotFound
	}
	delete(datasets, id)
	return s.save(datasets)
}
