// Package store defines the user-record storage contract shared by the
// flat-file and bbolt backends.
package store

import "errors"

// Sentinel errors forming the closed outcome set of Store operations.
// Callers branch with errors.Is; a nil error is success.
var (
	// ErrNotFound is returned when no record exists for the identity.
	// It implies the store round-trip itself succeeded.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Create when the identity is taken.
	ErrAlreadyExists = errors.New("identity already exists")

	// ErrIdentityTaken is returned by Update when a rename collides with
	// an existing identity. The record is left untouched.
	ErrIdentityTaken = errors.New("new identity already exists")

	// ErrUnavailable wraps I/O and persistence failures. Callers may retry
	// or surface a service-unavailable response; the store itself never
	// retries.
	ErrUnavailable = errors.New("store unavailable")
)

// Record is one user row. PasswordHash is opaque to the store and never the
// plaintext. Records are handed out by value; mutating a returned Record
// does not touch the store.
type Record struct {
	Identity     string `json:"identity"`
	PasswordHash string `json:"password_hash"`
	DisplayName  string `json:"display_name"`
}

// Store is durable keyed storage for user records.
//
// Implementations must make each mutating call a single atomic step with
// respect to concurrent calls: the check (exists / conflicts) and the write
// it guards may not interleave with another mutation.
type Store interface {
	// GetByIdentity fetches the record for identity or ErrNotFound.
	GetByIdentity(identity string) (Record, error)

	// Create inserts rec if rec.Identity is free, else ErrAlreadyExists.
	Create(rec Record) error

	// Delete removes the record for identity or returns ErrNotFound.
	Delete(identity string) error

	// Update replaces the record stored at identity with rec.
	//
	// ErrNotFound if identity is absent. If rec equals the stored record
	// the call is a no-op success. If rec.Identity differs from identity
	// (a rename), ErrIdentityTaken when the new identity is occupied;
	// otherwise the old key is removed and rec inserted under the new key
	// in one visible step.
	Update(identity string, rec Record) error
}
