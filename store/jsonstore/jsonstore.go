// Package jsonstore implements store.Store as a single JSON file.
//
// The whole table lives in memory once loaded and the file is rewritten in
// full on every mutation, so the on-disk file is always a complete snapshot.
// The cost is O(table) per write; fine for the small user counts this serves.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/jmcleod/gatehouse/store"
)

// Store is a file-backed store.Store. The table is loaded lazily on first
// access; a missing file starts an empty table, and an unparseable file is
// logged and treated as empty rather than failing startup.
type Store struct {
	path   string
	logger *slog.Logger

	// mu covers the whole read-modify-persist sequence of every mutation.
	// Two concurrent mutations must not interleave their steps, or the
	// final file could miss one of them.
	mu     sync.Mutex
	loaded bool
	table  map[string]store.Record
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report file corruption.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store persisting to the JSON file at path. The file is not
// touched until the first operation.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// load reads the table from disk on first access. Caller holds mu.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.table = make(map[string]store.Record)
		s.loaded = true
		return nil
	}
	if err != nil {
		// Leave unloaded so the next call retries the read.
		return fmt.Errorf("reading table file %s: %w: %w", s.path, store.ErrUnavailable, err)
	}

	table := make(map[string]store.Record)
	if err := json.Unmarshal(data, &table); err != nil {
		// A corrupt file is indistinguishable from "no users yet" after
		// this point. Deliberate: startup survives, the operator gets a
		// log line to act on.
		s.logger.Error("user table file is not valid JSON, starting with an empty table",
			"path", s.path, "error", err)
		table = make(map[string]store.Record)
	}
	s.table = table
	s.loaded = true
	return nil
}

// persist rewrites the entire table file. Caller holds mu.
//
// A failed write returns ErrUnavailable but the in-memory table keeps the
// new state, so memory runs ahead of disk until the next successful persist
// or a restart (which reloads the stale file).
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.table, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding table: %w: %w", store.ErrUnavailable, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing table file %s: %w: %w", s.path, store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) GetByIdentity(identity string) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return store.Record{}, err
	}
	rec, ok := s.table[identity]
	if !ok {
		return store.Record{}, fmt.Errorf("%s: %w", identity, store.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) Create(rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.table[rec.Identity]; ok {
		return fmt.Errorf("%s: %w", rec.Identity, store.ErrAlreadyExists)
	}
	s.table[rec.Identity] = rec
	return s.persist()
}

func (s *Store) Delete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.table[identity]; !ok {
		return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
	}
	delete(s.table, identity)
	return s.persist()
}

func (s *Store) Update(identity string, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	current, ok := s.table[identity]
	if !ok {
		return fmt.Errorf("%s: %w", identity, store.ErrNotFound)
	}
	if rec == current {
		// Nothing changed; skip the disk write.
		return nil
	}
	if rec.Identity != identity {
		if _, taken := s.table[rec.Identity]; taken {
			return fmt.Errorf("%s: %w", rec.Identity, store.ErrIdentityTaken)
		}
		delete(s.table, identity)
	}
	s.table[rec.Identity] = rec
	return s.persist()
}
