package core

// Persistence adapter backed by go.etcd.io/bbolt, the canonical upstream of
// the embedded ordered KV store rivine's persist/boltdb.go wraps (that repo
// uses a renamed fork; nothing here needs its patches). One bucket holds the
// whole flat key space — block:<index> and wallet:<address> records share
// it, ordered by key, so Cursor().Seek(prefix) is a prefix scan.

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var ledgerBucket = []byte("ledger")

// KVPair is one entry returned by a prefix scan, in key order.
type KVPair struct {
	Key   []byte
	Value []byte
}

// Store is the durable key/value adapter used by Engine.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (creating if necessary) a bbolt database at path and
// ensures the ledger bucket exists.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w: %v", path, ErrPersistence, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w: %v", ErrPersistence, err)
	}
	return &Store{db: db}, nil
}

// Put writes value under key, committed durably before returning.
func (s *Store) Put(key, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(ledgerBucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w: %v", key, ErrPersistence, err)
	}
	return nil
}

// Get reads the value stored at key. The returned bool is false if the key
// is absent (not an error).
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(ledgerBucket).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w: %v", key, ErrPersistence, err)
	}
	return out, out != nil, nil
}

// ScanPrefix returns every key/value pair whose key starts with prefix, in
// ascending key order.
func (s *Store) ScanPrefix(prefix []byte) ([]KVPair, error) {
	var pairs []KVPair
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(ledgerBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			pairs = append(pairs, KVPair{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w: %v", prefix, ErrPersistence, err)
	}
	return pairs, nil
}

// Flush forces the database file to stable storage.
func (s *Store) Flush() error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("flush: %w: %v", ErrPersistence, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("block:%020d", index))
}

func walletKey(addr Address) []byte {
	return []byte("wallet:" + string(addr))
}

const (
	blockKeyPrefix  = "block:"
	walletKeyPrefix = "wallet:"
)
