// Package boltstore implements store.Store backed by a bbolt database.
//
// It offers the same contract as the flat-file backend but with per-record
// writes; each mutation runs in one bbolt transaction, so the conflict
// check and the write it guards are atomic by construction.
package boltstore

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/gatehouse/store"
)

var usersBucket = []byte("users")

// Store implements store.Store on a bbolt database.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// New returns a Store using the given open database.
func New(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) a bbolt database at path and returns a
// Store over it.
func Open(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w: %w", path, store.ErrUnavailable, err)
	}
	return New(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

func getRecord(b *bbolt.Bucket, identity string) (store.Record, bool, error) {
	data := b.Get([]byte(identity))
	if data == nil {
		return store.Record{}, false, nil
	}
	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.Record{}, false, unavailable(err)
	}
	return rec, true, nil
}

func putRecord(b *bbolt.Bucket, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return unavailable(err)
	}
	if err := b.Put([]byte(rec.Identity), data); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) GetByIdentity(identity string) (store.Record, error) {
	var rec store.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b == nil {
			return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
		}
		got, ok, err := getRecord(b, identity)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
		}
		rec = got
		return nil
	})
	if err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

func (s *Store) Create(rec store.Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(usersBucket)
		if err != nil {
			return unavailable(err)
		}
		if b.Get([]byte(rec.Identity)) != nil {
			return fmt.Errorf("%s: %w", rec.Identity, store.ErrAlreadyExists)
		}
		return putRecord(b, rec)
	})
}

func (s *Store) Delete(identity string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b == nil || b.Get([]byte(identity)) == nil {
			return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
		}
		if err := b.Delete([]byte(identity)); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

func (s *Store) Update(identity string, rec store.Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b == nil {
			return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
		}
		current, ok, err := getRecord(b, identity)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
		}
		if rec == current {
			return nil
		}
		if rec.Identity != identity {
			if b.Get([]byte(rec.Identity)) != nil {
				return fmt.Errorf("%s: %w", rec.Identity, store.ErrIdentityTaken)
			}
			if err := b.Delete([]byte(identity)); err != nil {
				return unavailable(err)
			}
		}
		return putRecord(b, rec)
	})
}
