package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cuemby/burrow/pkg/types"
)

// Store persists the set of task names created through burrow.
//
// Load returns the full mapping; Save replaces it. Register and Unregister are
// read-modify-write helpers: registering an existing name overwrites it and
// unregistering a missing name is a no-op.
type Store interface {
	Load() (map[string]types.Metadata, error)
	Save(names map[string]types.Metadata) error
	Register(name string) error
	Unregister(name string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Default registry file names, relative to the working directory. The
// backends use different files so one never opens the other's data.
const (
	DefaultFile     = "instance_metadata.json"
	DefaultBoltFile = "burrow.db"
)

// DefaultPath returns the registry location used for backend when none is
// configured
func DefaultPath(backend string) string {
	name := DefaultFile
	if backend == BackendBolt {
		name = DefaultBoltFile
	}
	wd, err := os.Getwd()
	if err != nil {
		return name
	}
	return filepath.Join(wd, name)
}

// Open returns the Store for the named backend
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown registry backend: %s", backend)
	}
}

// OpenExisting is Open for registries that must already exist. Open creates
// a missing registry; OpenExisting fails instead.
func OpenExisting(backend, path string) (Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("registry %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to stat registry %s: %w", path, err)
	}
	return Open(backend, path)
}

// CorruptionError is returned when persisted registry data exists but
// cannot be decoded. The data is left untouched.
type CorruptionError struct {
	Path string
	Key  string
	Err  error
}

func (e *CorruptionError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("registry %s is corrupt at key %q: %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("registry %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Names returns the registered names in ascending order
func Names(names map[string]types.Metadata) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Migrate copies every entry of from into to, keeping entries already in to.
// It returns the number of names copied.
func Migrate(from, to Store) (int, error) {
	src, err := from.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load source registry: %w", err)
	}

	dst, err := to.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load destination registry: %w", err)
	}

	for name, meta := range src {
		dst[name] = meta
	}

	if err := to.Save(dst); err != nil {
		return 0, fmt.Errorf("failed to save destination registry: %w", err)
	}
	return len(src), nil
}
