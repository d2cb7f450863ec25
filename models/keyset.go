package models

// Keyset is the locally cached description of a mint keyset. Credit
// keysets carry a final expiry which doubles as the redemption maturity
// for any credit proofs issued under them.
type Keyset struct {
	ID       string `gorm:"primary_key"`
	WalletID string `gorm:"primary_key"`

	Unit   string
	Active bool

	// InputFeePPK is the mint's fee in parts-per-thousand per proof used
	// as an input to a swap or melt.
	InputFeePPK uint64

	// FinalExpiry is the unix timestamp after which the keyset can no
	// longer sign. Zero for keysets without an expiry (debit keysets).
	FinalExpiry int64
}

// KeysetCounter tracks how many secrets have been deterministically
// derived for a keyset. Restore-from-seed advances it past any secrets
// the mint has already seen.
type KeysetCounter struct {
	KeysetID string `gorm:"primary_key"`
	WalletID string `gorm:"primary_key"`
	Counter  uint32
}
