// Package store persists committed claim batches in an embedded BadgerDB.
// A batch is keyed by its Merkle root and never overwritten: the whole
// point of a commitment is that it cannot change after the fact.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/ppiankov/alethia/internal/model"
)

var (
	// ErrNotFound is returned when no batch exists for the given root.
	ErrNotFound = errors.New("batch not found")

	// ErrAlreadyExists is returned when saving a batch whose root is
	// already committed. Commitments are immutable.
	ErrAlreadyExists = errors.New("batch already committed")
)

const batchKeyPrefix = "batch:"

// CommitmentStore is an embedded store for committed batches.
// Safe for concurrent use.
type CommitmentStore struct {
	db *badger.DB
}

// Open opens (or creates) a persistent store at path.
func Open(path string) (*CommitmentStore, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", path, err)
	}
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &CommitmentStore{db: db}, nil
}

// OpenInMemory opens a store that lives only for the process lifetime.
// Used in tests and for one-shot runs that do not need persistence.
func OpenInMemory() (*CommitmentStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &CommitmentStore{db: db}, nil
}

// Close releases the underlying database.
func (s *CommitmentStore) Close() error {
	return s.db.Close()
}

func batchKey(root model.Hash) []byte {
	return []byte(batchKeyPrefix + string(root))
}

// SaveBatch stores a committed batch under its root. Returns
// ErrAlreadyExists if the root is already present; an existing
// commitment is never replaced.
func (s *CommitmentStore) SaveBatch(batch *model.CommittedBatch) error {
	if batch == nil || batch.Commitment.Root == "" {
		return errors.New("batch has no root")
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	key := batchKey(batch.Commitment.Root)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing batch: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetBatch loads the batch committed under root. Returns ErrNotFound
// if no such commitment exists.
func (s *CommitmentStore) GetBatch(root model.Hash) (*model.CommittedBatch, error) {
	var batch model.CommittedBatch
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(batchKey(root))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read batch: %w", err)
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListRoots returns the roots of all committed batches, in key order.
func (s *CommitmentStore) ListRoots() ([]model.Hash, error) {
	var roots []model.Hash
	prefix := []byte(batchKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			roots = append(roots, model.Hash(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	return roots, nil
}
