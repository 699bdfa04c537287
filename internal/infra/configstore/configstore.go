// Package configstore persists UI configuration that must survive
// restarts but does not belong in the entity database — today the
// kanban stage layout. Backed by an embedded BadgerDB; last writer's
// full snapshot wins, there is no partial-key merging.
package configstore

import (
	"errors"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// Badger is a key-value config store on a local BadgerDB.
type Badger struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the store at dir.
func Open(dir string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is too chatty; we log at this layer
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, logger: logger}, nil
}

// OpenInMemory opens an in-memory store. Used by tests for isolation.
func OpenInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, logger: zap.NewNop()}, nil
}

// Get returns the stored value for key, or ok=false when absent.
func (s *Badger) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous snapshot.
func (s *Badger) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		s.logger.Error("configstore: set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Close releases the underlying database.
func (s *Badger) Close() error {
	return s.db.Close()
}
