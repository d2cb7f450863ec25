package models

// Key holds raw key data used by the wallet engine and stored in the
// database. The name field identifies the key and is used as
// the primary key.
type Key struct {
	Name  string `gorm:"primary_key"`
	Value []byte
}
