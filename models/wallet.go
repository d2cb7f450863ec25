package models

import "time"

// Wallet holds the registration record for a single wallet: its mint
// endpoint, its unit pair and the extended key all proof secrets are
// derived from. This model is saved in the database indexed by the
// wallet ID.
type Wallet struct {
	ID   string `gorm:"primary_key"`
	Name string `gorm:"unique_index"`

	MintURL string

	// DebitUnit is the immediately spendable track. CreditUnit is the
	// maturing track which requires redemption to become spendable.
	DebitUnit  string
	CreditUnit string

	// Xpriv is the serialized extended private key derived from the
	// wallet's mnemonic at registration time.
	Xpriv string

	CreatedAt time.Time
}
