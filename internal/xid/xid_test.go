package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewWithoutPrefixIsUUID(t *testing.T) {
	id := New("")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid, got %q: %v", id, err)
	}
}

func TestNewKeepsPrefixAndIsUnique(t *testing.T) {
	a, b := New("lic"), New("lic")
	if !strings.HasPrefix(a, "lic-") {
		t.Fatalf("expected lic- prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}
