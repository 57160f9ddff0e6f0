// Package storetest provides a conformance suite run against every
// store.Store implementation.
package storetest

import (
	"errors"
	"testing"

	"github.com/jmcleod/gatehouse/store"
)

// Run exercises the Store contract. newStore must return a fresh, empty
// store for each invocation.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	rec := store.Record{Identity: "alice", PasswordHash: "$2a$fakehash", DisplayName: "Alice"}

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got, err := s.GetByIdentity("alice")
		if err != nil {
			t.Fatalf("GetByIdentity failed: %v", err)
		}
		if got != rec {
			t.Errorf("got %+v, want %+v", got, rec)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetByIdentity("nobody")
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		dup := store.Record{Identity: "alice", PasswordHash: "other", DisplayName: "Impostor"}
		if err := s.Create(dup); !errors.Is(err, store.ErrAlreadyExists) {
			t.Fatalf("got %v, want ErrAlreadyExists", err)
		}
		// The first record's content must survive the rejected create.
		got, err := s.GetByIdentity("alice")
		if err != nil {
			t.Fatalf("GetByIdentity failed: %v", err)
		}
		if got != rec {
			t.Errorf("got %+v, want the original record %+v", got, rec)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := s.Delete("alice"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.GetByIdentity("alice"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("got %v after delete, want ErrNotFound", err)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete("nobody"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		changed := rec
		changed.DisplayName = "Alice Q."
		if err := s.Update("alice", changed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, _ := s.GetByIdentity("alice")
		if got != changed {
			t.Errorf("got %+v, want %+v", got, changed)
		}
	})

	t.Run("UpdateNoop", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := s.Update("alice", rec); err != nil {
			t.Fatalf("identical update should be a no-op success, got %v", err)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		if err := s.Update("nobody", rec); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateRename", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		renamed := rec
		renamed.Identity = "alicia"
		if err := s.Update("alice", renamed); err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if _, err := s.GetByIdentity("alice"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("old identity still present: %v", err)
		}
		got, err := s.GetByIdentity("alicia")
		if err != nil {
			t.Fatalf("new identity missing: %v", err)
		}
		if got != renamed {
			t.Errorf("got %+v, want %+v", got, renamed)
		}
	})

	t.Run("UpdateRenameConflict", func(t *testing.T) {
		s := newStore(t)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		bob := store.Record{Identity: "bob", PasswordHash: "h", DisplayName: "Bob"}
		if err := s.Create(bob); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		renamed := rec
		renamed.Identity = "bob"
		if err := s.Update("alice", renamed); !errors.Is(err, store.ErrIdentityTaken) {
			t.Fatalf("got %v, want ErrIdentityTaken", err)
		}
		// Both originals untouched.
		gotA, _ := s.GetByIdentity("alice")
		if gotA != rec {
			t.Errorf("alice changed by failed rename: %+v", gotA)
		}
		gotB, _ := s.GetByIdentity("bob")
		if gotB != bob {
			t.Errorf("bob changed by failed rename: %+v", gotB)
		}
	})
}
