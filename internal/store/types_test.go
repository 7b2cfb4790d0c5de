package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanonicalPairIsOrderInsensitive(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	gotA, gotB := canonicalPair(a, b)
	if gotA != a || gotB != b {
		t.Errorf("canonicalPair(a, b) = (%s, %s), want (%s, %s)", gotA, gotB, a, b)
	}

	gotA, gotB = canonicalPair(b, a)
	if gotA != a || gotB != b {
		t.Errorf("canonicalPair(b, a) = (%s, %s), want (%s, %s)", gotA, gotB, a, b)
	}
}

func TestCanonicalPairSameUser(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")

	gotA, gotB := canonicalPair(a, a)
	if gotA != a || gotB != a {
		t.Errorf("canonicalPair(a, a) = (%s, %s), want (%s, %s)", gotA, gotB, a, a)
	}
}
