package user

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/gatehouse/credential"
	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/store"
	"github.com/jmcleod/gatehouse/store/jsonstore"
)

func newTestManager(t *testing.T) (*Manager, *session.Engine) {
	t.Helper()
	hasher, err := credential.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	st := jsonstore.New(filepath.Join(t.TempDir(), "users.json"))
	engine := session.NewEngine(st, hasher, time.Hour)
	t.Cleanup(engine.Close)
	return NewManager(st, engine, hasher, slog.Default()), engine
}

func TestNormalizeIdentity(t *testing.T) {
	if got := NormalizeIdentity("  alice  "); got != "alice" {
		t.Errorf("got %q, want alice", got)
	}
	// NFD "é" (e + combining acute) normalizes to the NFC single rune.
	if got := NormalizeIdentity("rémy"); got != "rémy" {
		t.Errorf("got %q, want rémy", got)
	}
}

func TestCreateAndLogin(t *testing.T) {
	m, engine := newTestManager(t)

	rec, err := m.Create(NewUser{Identity: "alice", Password: "secret", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.PasswordHash == "secret" || rec.PasswordHash == "" {
		t.Fatal("record must carry a hash, not the plaintext")
	}

	if _, err := engine.Login("alice", "secret"); err != nil {
		t.Errorf("login with created user failed: %v", err)
	}
}

func TestCreateEmptyIdentity(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "   ", Password: "x"}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("got %v, want ErrInvalidIdentity", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "alice", Password: "x"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := m.Create(NewUser{Identity: "alice", Password: "y"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteStopsSessions(t *testing.T) {
	m, engine := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	p, err := engine.Login("alice", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := m.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := engine.GetActiveSession(p.Token); ok {
		t.Error("session should be invalidated when the user is deleted")
	}
	if err := m.Delete("alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestModifyDisplayNameAndPassword(t *testing.T) {
	m, engine := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "alice", Password: "secret", DisplayName: "Alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec, err := m.Modify("alice", Update{DisplayName: "Alice Q.", Password: "newsecret"}, "")
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if rec.DisplayName != "Alice Q." {
		t.Errorf("got display name %q, want Alice Q.", rec.DisplayName)
	}

	if _, err := engine.Login("alice", "secret"); !errors.Is(err, session.ErrBadCredentials) {
		t.Error("old password should no longer work")
	}
	if _, err := engine.Login("alice", "newsecret"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestModifyRenameCarriesSession(t *testing.T) {
	m, engine := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	caller, _ := engine.Login("alice", "secret")
	other, _ := engine.Login("alice", "secret")

	rec, err := m.Modify("alice", Update{Identity: "alicia"}, caller.Token)
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if rec.Identity != "alicia" {
		t.Fatalf("got identity %q, want alicia", rec.Identity)
	}

	// The caller's session follows the rename; the other session, still
	// pointing at the old identity, is stopped.
	got, ok := engine.GetActiveSession(caller.Token)
	if !ok || got.Identity != "alicia" {
		t.Errorf("caller session not carried: ok=%v identity=%q", ok, got.Identity)
	}
	if _, ok := engine.GetActiveSession(other.Token); ok {
		t.Error("other session for the old identity should be stopped")
	}

	if _, err := m.Get("alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old identity should be gone, got %v", err)
	}
}

func TestModifyRenameConflict(t *testing.T) {
	m, engine := newTestManager(t)
	if _, err := m.Create(NewUser{Identity: "alice", Password: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(NewUser{Identity: "bob", Password: "b"}); err != nil {
		t.Fatal(err)
	}
	p, _ := engine.Login("alice", "a")

	_, err := m.Modify("alice", Update{Identity: "bob"}, p.Token)
	if !errors.Is(err, store.ErrIdentityTaken) {
		t.Fatalf("got %v, want ErrIdentityTaken", err)
	}
	// Failed rename leaves the caller's session alone.
	if got, ok := engine.GetActiveSession(p.Token); !ok || got.Identity != "alice" {
		t.Error("session should be untouched after a failed rename")
	}
}

func TestModifyMissing(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Modify("nobody", Update{DisplayName: "X"}, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
