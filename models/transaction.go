package models

import (
	"strings"
	"time"
)

// TxDirection marks a ledger entry as incoming or outgoing value.
type TxDirection string

const (
	TxIn  TxDirection = "in"
	TxOut TxDirection = "out"
)

// TxStatus is the lifecycle state of a ledger entry.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSettled TxStatus = "settled"
	TxFailed  TxStatus = "failed"
)

// Transaction is a single entry in a wallet's ledger. Entries are append
// only: once settled or failed they are never mutated again.
type Transaction struct {
	ID       string `gorm:"primary_key"`
	WalletID string `gorm:"index"`

	Direction TxDirection
	Amount    Amount
	Unit      string
	Fees      Amount
	Status    TxStatus

	Memo string

	// ProofRefs holds the ids of the proofs this transaction consumed or
	// produced, comma separated.
	ProofRefs string

	// ErrReason records why a failed entry failed.
	ErrReason string

	Timestamp time.Time `gorm:"index"`
}

// SetProofRefs stores the given proof ids on the transaction.
func (t *Transaction) SetProofRefs(ids []string) {
	t.ProofRefs = strings.Join(ids, ",")
}

// GetProofRefs returns the proof ids referenced by the transaction.
func (t *Transaction) GetProofRefs() []string {
	if t.ProofRefs == "" {
		return nil
	}
	return strings.Split(t.ProofRefs, ",")
}
