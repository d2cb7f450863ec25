package models

import "time"

// ProofStatus is the local lifecycle state of a proof.
type ProofStatus string

const (
	// ProofAvailable means the proof is unspent and free to be selected.
	ProofAvailable ProofStatus = "available"

	// ProofPending means the proof is reserved by an in-flight operation.
	ProofPending ProofStatus = "pending"

	// ProofSpent means the proof has been consumed. Spent proofs are kept
	// until CleanLocalDB confirms them against the mint and purges them.
	ProofSpent ProofStatus = "spent"
)

// Proof is an unspent bearer credential held by a wallet. The ID is the
// proof's secret identity hash which the mint also uses to report
// spent/unspent state, so it doubles as the reconciliation key.
type Proof struct {
	ID       string `gorm:"primary_key"`
	WalletID string `gorm:"index"`

	Amount   Amount
	Unit     string
	KeysetID string

	Secret    string
	Signature string

	Status ProofStatus `gorm:"index"`

	// ReservationID is the id of the operation currently holding this
	// proof. Empty unless Status == ProofPending.
	ReservationID string `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
