package store

import (
	"strings"
	"testing"
)

func TestNewSlug_AlphabetAndLength(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, err := newSlug()
		if err != nil {
			t.Fatalf("newSlug: %v", err)
		}
		if len(s) != SlugLen {
			t.Fatalf("expected %d chars, got %q", SlugLen, s)
		}
		for _, r := range s {
			if !strings.ContainsRune(slugAlphabet, r) {
				t.Fatalf("unexpected rune %q in %q", r, s)
			}
		}
		seen[s] = true
	}
	if len(seen) < 190 {
		t.Fatalf("expected mostly unique slugs, got %d distinct of 200", len(seen))
	}
}

func TestNewID_Unique(t *testing.T) {
	t.Parallel()

	a, b := newID(), newID()
	if a == "" || a == b {
		t.Fatalf("expected distinct ids, got %q and %q", a, b)
	}
}
