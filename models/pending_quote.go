package models

import "time"

// QuoteKind distinguishes quotes for receiving newly minted proofs from
// quotes for melting proofs into an outbound payment.
type QuoteKind string

const (
	QuoteMint QuoteKind = "mint"
	QuoteMelt QuoteKind = "melt"
)

// PendingQuote is a mint quote we are still waiting on. It is persisted
// so that confirmation polling and change recovery survive a restart.
type PendingQuote struct {
	QuoteID  string `gorm:"primary_key"`
	WalletID string `gorm:"index"`

	Kind   QuoteKind
	Amount Amount
	Unit   string
	State  string

	// TxID correlates the quote with its pending ledger entry.
	TxID string

	Expiry    int64
	CreatedAt time.Time
}
