package ledger

import (
	"errors"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/models"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

var (
	// ErrNotFound is returned when no transaction exists for the given
	// wallet and id.
	ErrNotFound = errors.New("transaction not found")

	// ErrTerminal is returned on an attempt to transition a transaction
	// that has already settled or failed. The ledger is append only.
	ErrTerminal = errors.New("transaction already in a terminal state")
)

// Ledger is the append-only log of wallet operations. Entries begin
// pending and move exactly once to settled or failed; terminal entries
// are never mutated again.
type Ledger struct {
	db database.Database
}

// NewLedger returns a Ledger backed by db.
func NewLedger(db database.Database) *Ledger {
	return &Ledger{db: db}
}

// Begin appends a pending entry and returns its id.
func (l *Ledger) Begin(tx database.Tx, walletID string, direction models.TxDirection, amount models.Amount, unit, memo string) (string, error) {
	entry := models.Transaction{
		ID:        uuid.New().String(),
		WalletID:  walletID,
		Direction: direction,
		Amount:    amount,
		Unit:      unit,
		Memo:      memo,
		Status:    models.TxPending,
		Timestamp: time.Now(),
	}
	if err := tx.Save(&entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Settle transitions a pending entry to settled, recording the fees paid
// and the proofs consumed or produced.
func (l *Ledger) Settle(tx database.Tx, txID string, fees models.Amount, proofRefs []string) error {
	entry, err := l.loadTx(tx, txID)
	if err != nil {
		return err
	}
	if entry.Status != models.TxPending {
		return ErrTerminal
	}
	entry.Status = models.TxSettled
	entry.Fees = fees
	entry.SetProofRefs(proofRefs)
	return tx.Save(entry)
}

// Fail transitions a pending entry to failed with the given reason.
func (l *Ledger) Fail(tx database.Tx, txID, reason string) error {
	entry, err := l.loadTx(tx, txID)
	if err != nil {
		return err
	}
	if entry.Status != models.TxPending {
		return ErrTerminal
	}
	entry.Status = models.TxFailed
	entry.ErrReason = reason
	return tx.Save(entry)
}

// ListIDs returns the wallet's transaction ids in reverse chronological
// order.
func (l *Ledger) ListIDs(walletID string) ([]string, error) {
	var ids []string
	err := l.db.View(func(tx database.Tx) error {
		var entries []models.Transaction
		err := tx.Read().
			Where("wallet_id = ?", walletID).
			Order("timestamp desc, id desc").
			Find(&entries).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		ids = make([]string, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}
		return nil
	})
	return ids, err
}

// Load returns the wallet's transaction with the given id, or ErrNotFound.
func (l *Ledger) Load(walletID, txID string) (*models.Transaction, error) {
	var entry models.Transaction
	err := l.db.View(func(tx database.Tx) error {
		err := tx.Read().Where("wallet_id = ? AND id = ?", walletID, txID).First(&entry).Error
		if gorm.IsRecordNotFoundError(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (l *Ledger) loadTx(tx database.Tx, txID string) (*models.Transaction, error) {
	var entry models.Transaction
	err := tx.Read().Where("id = ?", txID).First(&entry).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
