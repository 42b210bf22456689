package analyzer

import (
	"testing"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("What is the candidate's Email?")
	expected := []string{"candidate", "email"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], tokens[i])
		}
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("the quick brown fox")
	for _, token := range tokens {
		if token == "the" {
			t.Errorf("stopword 'the' should be removed, got %v", tokens)
		}
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("a I x go")
	if len(tokens) != 1 || tokens[0] != "go" {
		t.Errorf("expected only 'go', got %v", tokens)
	}
}

func TestTokenizer_EmailSplits(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("jane.doe@example.com")
	expected := []string{"jane", "doe", "example", "com"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, tokens)
	}
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer()

	if got := tok.CountTokens(""); got != 0 {
		t.Errorf("expected 0 for empty text, got %d", got)
	}
	if got := tok.CountTokens("   \n\t"); got != 0 {
		t.Errorf("expected 0 for whitespace, got %d", got)
	}

	// 10 short words: word estimate 13 beats 39 runes / 4
	if got := tok.CountTokens("one two six ten red map cat dog sun sky"); got != 13 {
		t.Errorf("expected 13, got %d", got)
	}

	// a long identifier counts by characters
	if got := tok.CountTokens("0123456789012345678901234567890123456789"); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
}
