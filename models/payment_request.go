package models

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const paymentRequestPrefix = "bitcrR"

// PaymentRequest is the descriptor encoded into a "receive" string or QR
// code. The ID correlates the request with the quote opened for it.
type PaymentRequest struct {
	ID          string `json:"id"`
	Amount      Amount `json:"a"`
	Unit        string `json:"u"`
	MintURL     string `json:"m"`
	Memo        string `json:"d,omitempty"`
	Description string `json:"desc,omitempty"`
}

// String serializes the request to its portable text form.
func (r *PaymentRequest) String() string {
	out, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return paymentRequestPrefix + base64.RawURLEncoding.EncodeToString(out)
}

// QRCode renders the request as a QR PNG.
func (r *PaymentRequest) QRCode() ([]byte, error) {
	return qrcode.Encode(r.String(), qrcode.Medium, 256)
}

// ParsePaymentRequest decodes a payment request from its text form.
func ParsePaymentRequest(s string) (*PaymentRequest, error) {
	if !strings.HasPrefix(s, paymentRequestPrefix) {
		return nil, ErrInvalidTokenEncoding
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, paymentRequestPrefix))
	if err != nil {
		return nil, ErrInvalidTokenEncoding
	}
	var req PaymentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, ErrInvalidTokenEncoding
	}
	if req.ID == "" || req.MintURL == "" {
		return nil, ErrInvalidTokenEncoding
	}
	return &req, nil
}
