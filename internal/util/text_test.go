package util

import (
	"regexp"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  a\t b \n c  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	if got := Slugify("Pitch Decks, taking forever!"); got != "pitch-decks-taking-forever" {
		t.Fatalf("got %q", got)
	}
}

func TestDedupeHash(t *testing.T) {
	a := DedupeHash("startups", "deck-tools", "Anyone found a good deck tool?")
	b := DedupeHash("startups", "deck-tools", "Anyone found a good deck tool?")
	c := DedupeHash("webdev", "deck-tools", "Anyone found a good deck tool?")
	if a != b {
		t.Fatalf("hash not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("different forums should not collide in the common case")
	}
	if !regexp.MustCompile(`^[0-9a-z]+$`).MatchString(a) {
		t.Fatalf("hash %q not base36", a)
	}
}
