// Package session implements the authentication engine: credential
// verification against the record store, token issuance, and an in-memory
// cache of active sessions with sliding expiration.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmcleod/gatehouse/credential"
	"github.com/jmcleod/gatehouse/store"
)

// TokenLength is the number of characters in a minted session token.
const TokenLength = 128

// ErrBadCredentials is returned by Login for a wrong password or an unknown
// identity. The two cases are deliberately indistinguishable so callers
// cannot enumerate identities.
var ErrBadCredentials = errors.New("bad identity or password")

// ErrNoSession is returned by ReplaceSession when the token has no active
// session.
var ErrNoSession = errors.New("no active session for token")

// Principal is one authenticated session. It lives only in the engine's
// cache, never on disk.
type Principal struct {
	Identity string
	Token    string
}

type entry struct {
	principal  Principal
	lastAccess time.Time
}

// Engine maps session tokens to principals with a sliding expiration
// measured from last access. All cache access is serialized by one mutex,
// including the bulk scan, so a concurrent login or logout cannot be lost
// mid-iteration.
type Engine struct {
	store   store.Store
	hasher  *credential.Hasher
	timeout time.Duration
	clock   Clock
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry

	sweepEvery time.Duration
	stopOnce   sync.Once
	stopCh     chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock; used by tests to advance time.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger for store failures observed during login.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSweepInterval starts a background goroutine that evicts expired
// sessions every interval. Without it, expired entries are only evicted
// lazily when their token is next touched. Call Close to stop the sweeper.
func WithSweepInterval(interval time.Duration) Option {
	return func(e *Engine) { e.sweepEvery = interval }
}

// NewEngine creates an Engine authenticating against st. Sessions expire
// after timeout without access.
func NewEngine(st store.Store, hasher *credential.Hasher, timeout time.Duration, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		hasher:   hasher,
		timeout:  timeout,
		sessions: make(map[string]*entry),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.sweepEvery > 0 {
		go e.sweepLoop()
	}
	return e
}

// Close stops the background sweeper, if one was started.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Login verifies identity/password and, on success, mints a token and
// records the session.
//
// A store failure propagates as-is (callers see store.ErrUnavailable and
// learn nothing about the identity). A missing identity runs the same hash
// comparison as a wrong password before yielding ErrBadCredentials.
func (e *Engine) Login(identity, password string) (Principal, error) {
	rec, err := e.store.GetByIdentity(identity)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		// Empty hash: Compare still does a full bcrypt run and fails.
		rec = store.Record{}
	default:
		e.logger.Error("store error during login", "error", err)
		return Principal{}, err
	}

	if !e.hasher.Compare(password, rec.PasswordHash) {
		return Principal{}, ErrBadCredentials
	}

	token, err := credential.GenerateToken(TokenLength)
	if err != nil {
		return Principal{}, fmt.Errorf("minting session token: %w", err)
	}
	p := Principal{Identity: rec.Identity, Token: token}

	e.mu.Lock()
	e.sessions[token] = &entry{principal: p, lastAccess: e.clock.Now()}
	e.mu.Unlock()
	return p, nil
}

// Logout removes the session for token and reports whether an active one
// existed. An absent or already-expired token is a no-op.
func (e *Engine) Logout(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.sessions[token]
	if !ok {
		return false
	}
	delete(e.sessions, token)
	return !e.expired(ent)
}

// GetActiveSession looks up the session for token. A hit refreshes the
// sliding expiration window; an expired entry is evicted and reported as
// absent. No store round-trip is involved.
func (e *Engine) GetActiveSession(token string) (Principal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.sessions[token]
	if !ok {
		return Principal{}, false
	}
	if e.expired(ent) {
		delete(e.sessions, token)
		return Principal{}, false
	}
	ent.lastAccess = e.clock.Now()
	return ent.principal, true
}

// StopAllSessionsForIdentity removes every session belonging to identity
// and returns how many were removed. Used when a user is deleted so stale
// tokens cannot authenticate afterwards.
func (e *Engine) StopAllSessionsForIdentity(identity string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for token, ent := range e.sessions {
		if ent.principal.Identity == identity {
			delete(e.sessions, token)
			removed++
		}
	}
	return removed
}

// ReplaceSession re-points the session at token to newIdentity, keeping the
// token itself. Used when an identity change must carry an existing session
// forward without forcing a re-login.
func (e *Engine) ReplaceSession(token, newIdentity string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.sessions[token]
	if !ok {
		return ErrNoSession
	}
	if e.expired(ent) {
		delete(e.sessions, token)
		return ErrNoSession
	}
	ent.principal.Identity = newIdentity
	return nil
}

// expired reports whether ent's sliding window has lapsed. Caller holds mu.
func (e *Engine) expired(ent *entry) bool {
	return e.clock.Now().Sub(ent.lastAccess) > e.timeout
}

func (e *Engine) sweepLoop() {
	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.sweepExpired()
		}
	}
}

func (e *Engine) sweepExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for token, ent := range e.sessions {
		if e.expired(ent) {
			delete(e.sessions, token)
		}
	}
}
