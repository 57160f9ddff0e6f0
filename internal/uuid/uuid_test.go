package uuid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	id1 := New()
	id2 := New()

	if len(id1) != 36 || strings.Count(id1, "-") != 4 {
		t.Errorf("got %q, want canonical UUID form", id1)
	}

	if id1 == id2 {
		t.Error("UUIDs should be unique")
	}
}
