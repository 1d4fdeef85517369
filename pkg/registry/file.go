package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// FileStore keeps the registry as a single JSON object on disk:
//
//	{"alpha": {}, "beta": {}}
//
// The mutex only serializes callers within this process. Two processes
// writing the same file race and the last writer wins.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store, writing an empty registry if
// the file does not exist yet
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is required")
	}

	s := &FileStore{
		path:   path,
		logger: log.WithComponent("registry").With().Str("path", path).Logger(),
	}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) ensure() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat registry: %w", err)
	}

	s.logger.Debug().Msg("creating empty registry")
	return s.write(map[string]types.Metadata{})
}

// Load reads the full mapping
func (s *FileStore) Load() (map[string]types.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save overwrites the full mapping
func (s *FileStore) Save(names map[string]types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(names)
}

// Register adds name with empty metadata
func (s *FileStore) Register(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.read()
	if err != nil {
		return err
	}
	names[name] = types.Metadata{}
	return s.write(names)
}

// Unregister removes name if present
func (s *FileStore) Unregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := names[name]; !ok {
		return nil
	}
	delete(names, name)
	return s.write(names)
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]types.Metadata, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// Removed behind our back; start over from empty
		if err := s.write(map[string]types.Metadata{}); err != nil {
			return nil, err
		}
		return map[string]types.Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var names map[string]types.Metadata
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, &CorruptionError{Path: s.path, Err: err}
	}
	if names == nil {
		return nil, &CorruptionError{Path: s.path, Err: fmt.Errorf("not a JSON object")}
	}
	return names, nil
}

// write replaces the file atomically via a temp file in the same directory
func (s *FileStore) write(names map[string]types.Metadata) error {
	if names == nil {
		names = map[string]types.Metadata{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}

	s.logger.Debug().Int("entries", len(names)).Msg("registry saved")
	return nil
}
