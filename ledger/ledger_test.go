package ledger

import (
	"testing"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/database/sqlitedb"
	"github.com/bitcr/pocketd/models"
)

func newTestLedger(t *testing.T) (*Ledger, database.Database) {
	t.Helper()
	db, err := sqlitedb.NewMemoryDB()
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(tx database.Tx) error {
		return tx.Migrate(&models.Transaction{})
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewLedger(db), db
}

func TestLedger_SettleFlow(t *testing.T) {
	ledger, db := newTestLedger(t)
	defer db.Close()

	var txID string
	err := db.Update(func(tx database.Tx) error {
		var err error
		txID, err = ledger.Begin(tx, "w1", models.TxOut, 30, "sat", "coffee")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, err := ledger.Load("w1", txID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != models.TxPending {
		t.Errorf("Expected status pending, got %s", entry.Status)
	}

	err = db.Update(func(tx database.Tx) error {
		return ledger.Settle(tx, txID, 2, []string{"p1", "p2"})
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, err = ledger.Load("w1", txID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != models.TxSettled {
		t.Errorf("Expected status settled, got %s", entry.Status)
	}
	if entry.Fees != 2 {
		t.Errorf("Expected fees 2, got %d", entry.Fees)
	}
	refs := entry.GetProofRefs()
	if len(refs) != 2 || refs[0] != "p1" || refs[1] != "p2" {
		t.Errorf("Returned incorrect proof refs: %v", refs)
	}

	// Settled entries are immutable.
	err = db.Update(func(tx database.Tx) error {
		return ledger.Fail(tx, txID, "too late")
	})
	if err != ErrTerminal {
		t.Errorf("Expected ErrTerminal, got %v", err)
	}
	err = db.Update(func(tx database.Tx) error {
		return ledger.Settle(tx, txID, 5, nil)
	})
	if err != ErrTerminal {
		t.Errorf("Expected ErrTerminal, got %v", err)
	}
}

func TestLedger_FailFlow(t *testing.T) {
	ledger, db := newTestLedger(t)
	defer db.Close()

	var txID string
	err := db.Update(func(tx database.Tx) error {
		var err error
		txID, err = ledger.Begin(tx, "w1", models.TxOut, 10, "sat", "")
		if err != nil {
			return err
		}
		return ledger.Fail(tx, txID, "mint rejected melt")
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, err := ledger.Load("w1", txID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != models.TxFailed {
		t.Errorf("Expected status failed, got %s", entry.Status)
	}
	if entry.ErrReason != "mint rejected melt" {
		t.Errorf("Returned incorrect fail reason: %s", entry.ErrReason)
	}
}

func TestLedger_ListIDs(t *testing.T) {
	ledger, db := newTestLedger(t)
	defer db.Close()

	// Insert entries with distinct timestamps to pin the ordering.
	base := time.Now().Add(-time.Hour)
	var want []string
	err := db.Update(func(tx database.Tx) error {
		for i := 0; i < 3; i++ {
			entry := models.Transaction{
				ID:        string(rune('a' + i)),
				WalletID:  "w1",
				Direction: models.TxIn,
				Amount:    models.Amount(i + 1),
				Unit:      "sat",
				Status:    models.TxSettled,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}
			if err := tx.Save(&entry); err != nil {
				return err
			}
		}
		// A different wallet's entry must not leak in.
		other := models.Transaction{ID: "zz", WalletID: "w2", Status: models.TxSettled, Timestamp: base}
		return tx.Save(&other)
	})
	if err != nil {
		t.Fatal(err)
	}
	want = []string{"c", "b", "a"}

	ids, err := ledger.ListIDs("w1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestLedger_LoadNotFound(t *testing.T) {
	ledger, db := newTestLedger(t)
	defer db.Close()

	if _, err := ledger.Load("w1", "nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
