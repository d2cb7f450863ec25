package models

import (
	"strings"
	"testing"
)

func TestTokenStringParse(t *testing.T) {
	token := &Token{
		MintURL: "http://mint.test",
		Unit:    "sat",
		Memo:    "coffee",
		Proofs: []TokenProof{
			{Amount: 32, KeysetID: "00debit000000001", Secret: "s1", Signature: "c1"},
			{Amount: 4, KeysetID: "00debit000000001", Secret: "s2", Signature: "c2"},
		},
	}

	s := token.String()
	if !strings.HasPrefix(s, tokenPrefix) {
		t.Errorf("Expected token string to start with %s", tokenPrefix)
	}

	parsed, err := ParseToken(s)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.MintURL != token.MintURL {
		t.Errorf("Expected mint URL %s, got %s", token.MintURL, parsed.MintURL)
	}
	if parsed.Unit != token.Unit {
		t.Errorf("Expected unit %s, got %s", token.Unit, parsed.Unit)
	}
	if parsed.Memo != token.Memo {
		t.Errorf("Expected memo %s, got %s", token.Memo, parsed.Memo)
	}
	if len(parsed.Proofs) != 2 {
		t.Fatalf("Expected 2 proofs, got %d", len(parsed.Proofs))
	}
	value, err := parsed.Value()
	if err != nil {
		t.Fatal(err)
	}
	if value != 36 {
		t.Errorf("Expected value 36, got %d", value)
	}
}

func TestParseTokenInvalid(t *testing.T) {
	tests := []string{
		"",
		"garbage",
		tokenPrefix + "!!!not-base64!!!",
		tokenPrefix,
		(&Token{MintURL: "http://mint.test"}).String(),
		(&Token{Proofs: []TokenProof{{Amount: 1}}}).String(),
	}

	for _, test := range tests {
		if _, err := ParseToken(test); err != ErrInvalidTokenEncoding {
			t.Errorf("ParseToken(%q): expected ErrInvalidTokenEncoding, got %v", test, err)
		}
	}
}

func TestTokenValueDuplicateProofs(t *testing.T) {
	token := &Token{
		MintURL: "http://mint.test",
		Unit:    "sat",
		Proofs: []TokenProof{
			{Amount: 8, Secret: "same"},
			{Amount: 8, Secret: "same"},
		},
	}
	if _, err := token.Value(); err == nil {
		t.Error("Expected error for duplicate proofs")
	}
}
