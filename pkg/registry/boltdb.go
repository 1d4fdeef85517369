package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNames = []byte("names")
)

// BoltStore implements Store using BoltDB. Each name is a key in the names
// bucket; Register and Unregister are single update transactions, so
// concurrent writers never lose each other's updates.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	// bbolt holds an exclusive file lock; don't wait forever on another process
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketNames); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketNames, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, path: path}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Load() (map[string]types.Metadata, error) {
	names := make(map[string]types.Metadata)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNames)
		return b.ForEach(func(k, v []byte) error {
			var meta types.Metadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return &CorruptionError{Path: s.path, Key: string(k), Err: err}
			}
			names[string(k)] = meta
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *BoltStore) Save(names map[string]types.Metadata) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNames); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bucketNames)
		if err != nil {
			return err
		}
		for name, meta := range names {
			if err := putName(b, name, meta); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Register(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putName(tx.Bucket(bucketNames), name, types.Metadata{})
	})
}

func (s *BoltStore) Unregister(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNames).Delete([]byte(name))
	})
}

func putName(b *bolt.Bucket, name string, meta types.Metadata) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return b.Put([]byte(name), data)
}
