package models

import (
	"bytes"
	"testing"
)

func TestPaymentRequestStringParse(t *testing.T) {
	req := &PaymentRequest{
		ID:      "abc123",
		Amount:  48,
		Unit:    "sat",
		MintURL: "http://mint.test",
		Memo:    "rent",
	}

	parsed, err := ParsePaymentRequest(req.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.ID != req.ID {
		t.Errorf("Expected ID %s, got %s", req.ID, parsed.ID)
	}
	if parsed.Amount != req.Amount {
		t.Errorf("Expected amount %d, got %d", req.Amount, parsed.Amount)
	}
	if parsed.MintURL != req.MintURL {
		t.Errorf("Expected mint URL %s, got %s", req.MintURL, parsed.MintURL)
	}
	if parsed.Memo != req.Memo {
		t.Errorf("Expected memo %s, got %s", req.Memo, parsed.Memo)
	}
}

func TestParsePaymentRequestInvalid(t *testing.T) {
	tests := []string{
		"",
		"garbage",
		paymentRequestPrefix + "!!!not-base64!!!",
		(&PaymentRequest{Amount: 5, MintURL: "http://mint.test"}).String(),
		(&PaymentRequest{ID: "abc", Amount: 5}).String(),
	}

	for _, test := range tests {
		if _, err := ParsePaymentRequest(test); err != ErrInvalidTokenEncoding {
			t.Errorf("ParsePaymentRequest(%q): expected ErrInvalidTokenEncoding, got %v", test, err)
		}
	}
}

func TestPaymentRequestQRCode(t *testing.T) {
	req := &PaymentRequest{
		ID:      "abc123",
		Amount:  48,
		Unit:    "sat",
		MintURL: "http://mint.test",
	}
	png, err := req.QRCode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("Expected PNG output")
	}
}
