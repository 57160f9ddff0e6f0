package credential

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Tests use bcrypt.MinCost to keep hashing fast; production cost is
// configured at startup.

func TestHashAndCompare(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal plaintext")
	}

	if !h.Compare("hunter2", hash) {
		t.Error("expected correct password to match")
	}
	if h.Compare("hunter3", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestHashSaltVaries(t *testing.T) {
	h, _ := NewHasher(bcrypt.MinCost)

	h1, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same input should differ (random salt)")
	}
	if !h.Compare("same input", h1) || !h.Compare("same input", h2) {
		t.Error("both hashes should still verify")
	}
}

func TestCompareAbsentHash(t *testing.T) {
	h, _ := NewHasher(bcrypt.MinCost)

	// An empty hash always fails, even for the empty password the dummy
	// hash was derived from.
	if h.Compare("", "") {
		t.Error("empty hash must never match")
	}
	if h.Compare("anything", "") {
		t.Error("empty hash must never match")
	}
}

func TestNewHasherOutOfRangeCost(t *testing.T) {
	h, err := NewHasher(99)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if h.cost != DefaultCost {
		t.Errorf("got cost %d, want default %d", h.cost, DefaultCost)
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(128)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(tok) != 128 {
		t.Fatalf("got length %d, want 128", len(tok))
	}
	for _, r := range tok {
		if !strings.ContainsRune(tokenAlphabet, r) {
			t.Fatalf("token contains %q, outside the alphabet", r)
		}
	}

	tok2, err := GenerateToken(128)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if tok == tok2 {
		t.Error("two tokens should not collide")
	}
}

func TestGenerateTokenZeroLength(t *testing.T) {
	tok, err := GenerateToken(0)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if tok != "" {
		t.Errorf("got %q, want empty string", tok)
	}
}
