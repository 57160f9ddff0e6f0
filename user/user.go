// Package user implements the account workflows that sit above the record
// store: create, delete, and modify. Delete and rename also reconcile the
// session engine so the cache never outlives the record silently.
package user

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jmcleod/gatehouse/credential"
	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/store"
)

// ErrInvalidIdentity is returned when an identity is empty after
// normalization.
var ErrInvalidIdentity = errors.New("invalid identity")

// NormalizeIdentity trims surrounding whitespace and applies Unicode NFC so
// visually identical identities collide in the store instead of coexisting.
func NormalizeIdentity(identity string) string {
	return norm.NFC.String(strings.TrimSpace(identity))
}

// NewUser is the input for Create. Password is the plaintext; it is hashed
// here and never stored.
type NewUser struct {
	Identity    string
	Password    string
	DisplayName string
}

// Update carries the fields to change in Modify. An empty field is left
// unchanged.
type Update struct {
	Identity    string
	Password    string
	DisplayName string
}

// Manager composes the record store, session engine, and hasher into the
// account workflows.
type Manager struct {
	store    store.Store
	sessions *session.Engine
	hasher   *credential.Hasher
	logger   *slog.Logger
}

// NewManager creates a Manager.
func NewManager(st store.Store, sessions *session.Engine, hasher *credential.Hasher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, sessions: sessions, hasher: hasher, logger: logger}
}

// Create hashes the password and inserts a new record. Store outcomes
// (store.ErrAlreadyExists, store.ErrUnavailable) pass through.
func (m *Manager) Create(nu NewUser) (store.Record, error) {
	identity := NormalizeIdentity(nu.Identity)
	if identity == "" {
		return store.Record{}, ErrInvalidIdentity
	}
	hash, err := m.hasher.Hash(nu.Password)
	if err != nil {
		return store.Record{}, fmt.Errorf("hashing password for %s: %w", identity, err)
	}
	rec := store.Record{
		Identity:     identity,
		PasswordHash: hash,
		DisplayName:  nu.DisplayName,
	}
	if err := m.store.Create(rec); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

// Get fetches the record for identity.
func (m *Manager) Get(identity string) (store.Record, error) {
	return m.store.GetByIdentity(NormalizeIdentity(identity))
}

// Delete removes the record and then invalidates every session the identity
// holds, so stale tokens stop authenticating. Sessions are only stopped
// after the store delete succeeds.
func (m *Manager) Delete(identity string) error {
	identity = NormalizeIdentity(identity)
	if err := m.store.Delete(identity); err != nil {
		return err
	}
	if n := m.sessions.StopAllSessionsForIdentity(identity); n > 0 {
		m.logger.Info("invalidated sessions for deleted user", "identity", identity, "sessions", n)
	}
	return nil
}

// Modify applies upd to the record at identity. On a rename, sessionToken's
// session (the caller's own) is re-pointed at the new identity so the
// caller stays logged in; any other sessions for the old identity are
// stopped, since their principal no longer matches a record.
func (m *Manager) Modify(identity string, upd Update, sessionToken string) (store.Record, error) {
	identity = NormalizeIdentity(identity)
	current, err := m.store.GetByIdentity(identity)
	if err != nil {
		return store.Record{}, err
	}

	updated := current
	if upd.Identity != "" {
		newIdentity := NormalizeIdentity(upd.Identity)
		if newIdentity == "" {
			return store.Record{}, ErrInvalidIdentity
		}
		updated.Identity = newIdentity
	}
	if upd.DisplayName != "" {
		updated.DisplayName = upd.DisplayName
	}
	if upd.Password != "" {
		hash, err := m.hasher.Hash(upd.Password)
		if err != nil {
			return store.Record{}, fmt.Errorf("hashing password for %s: %w", identity, err)
		}
		updated.PasswordHash = hash
	}

	if err := m.store.Update(identity, updated); err != nil {
		return store.Record{}, err
	}

	if updated.Identity != identity {
		if sessionToken != "" {
			if err := m.sessions.ReplaceSession(sessionToken, updated.Identity); err != nil {
				// The caller's session lapsed mid-request; the rename
				// itself stands.
				m.logger.Warn("could not carry session across rename",
					"identity", updated.Identity, "error", err)
			}
		}
		if n := m.sessions.StopAllSessionsForIdentity(identity); n > 0 {
			m.logger.Info("invalidated stale sessions after rename",
				"identity", identity, "sessions", n)
		}
	}
	return updated, nil
}
