// Package boltstore keeps the durable checkpoint log in a BoltDB file.
// Each run gets a nested bucket under "checkpoints" keyed by step name.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var bucketCheckpoints = []byte("checkpoints")

// Store is a BoltDB-backed durable.Store.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucketCheckpoints, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying BoltDB instance.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(_ context.Context, runID, step string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		run := tx.Bucket(bucketCheckpoints).Bucket([]byte(runID))
		if run == nil {
			return nil
		}
		if v := run.Get([]byte(step)); v != nil {
			// Values are only valid inside the transaction.
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load checkpoint %s/%s: %w", runID, step, err)
	}
	return data, data != nil, nil
}

func (s *Store) Save(_ context.Context, runID, step string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		run, err := tx.Bucket(bucketCheckpoints).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return fmt.Errorf("failed to create run bucket %q: %w", runID, err)
		}
		return run.Put([]byte(step), data)
	})
}

func (s *Store) Forget(_ context.Context, runID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketCheckpoints).DeleteBucket([]byte(runID))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Runs lists run ids that have at least one checkpoint.
func (s *Store) Runs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, v []byte) error {
			if v == nil {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return ids, nil
}
