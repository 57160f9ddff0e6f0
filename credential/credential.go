// Package credential provides password hashing, constant-work password
// comparison, and session token generation.
package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher creates a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to DefaultCost.
//
// The dummy hash used by Compare for absent users is computed here, at the
// same cost as real hashes, so a lookup miss costs the same as a mismatch.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(""), cost)
	if err != nil {
		return nil, fmt.Errorf("computing dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Hash returns the bcrypt hash of plaintext. The salt is random, so hashing
// the same input twice yields different strings; only Compare can verify a
// password against a hash.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether plaintext matches hash, a product of Hash.
//
// An empty hash means "no such user": the comparison still runs against the
// precomputed dummy hash and the result is always false, so callers can't
// distinguish a missing user from a wrong password by timing.
func (h *Hasher) Compare(plaintext, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// GenerateToken returns n characters drawn uniformly from a fixed
// alphanumeric alphabet using crypto/rand.
func GenerateToken(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generating token character: %w", err)
		}
		sb.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
