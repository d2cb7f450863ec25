package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const tokenPrefix = "bitcrA"

// ErrInvalidTokenEncoding is returned when a token string cannot be
// decoded.
var ErrInvalidTokenEncoding = errors.New("invalid token encoding")

// TokenProof is the portable form of a proof carried inside a token.
type TokenProof struct {
	Amount    Amount `json:"a"`
	KeysetID  string `json:"i"`
	Secret    string `json:"s"`
	Signature string `json:"c"`
}

// Token is an offline redeemable bundle of proofs. Its string form is a
// prefixed base64url encoding of the JSON serialization, suitable for
// pasting or QR rendering.
type Token struct {
	MintURL string       `json:"m"`
	Unit    string       `json:"u"`
	Memo    string       `json:"d,omitempty"`
	Proofs  []TokenProof `json:"t"`
}

// Value returns the total amount carried by the token. Duplicate proofs
// make a token invalid since replaying the same secret twice can never
// redeem twice.
func (t *Token) Value() (Amount, error) {
	seen := make(map[string]bool)
	var total Amount
	for _, p := range t.Proofs {
		if seen[p.Secret] {
			return 0, errors.New("duplicate proofs in token")
		}
		seen[p.Secret] = true
		total += p.Amount
	}
	return total, nil
}

// String serializes the token to its portable text form.
func (t *Token) String() string {
	out, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(out)
}

// ParseToken decodes a token from its portable text form.
func ParseToken(s string) (*Token, error) {
	if !strings.HasPrefix(s, tokenPrefix) {
		return nil, ErrInvalidTokenEncoding
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, tokenPrefix))
	if err != nil {
		return nil, ErrInvalidTokenEncoding
	}
	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, ErrInvalidTokenEncoding
	}
	if len(token.Proofs) == 0 || token.MintURL == "" {
		return nil, ErrInvalidTokenEncoding
	}
	return &token, nil
}
