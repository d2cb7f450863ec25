package core

import (
	"context"
	"sort"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/bitcr/pocketd/pocket"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// RedemptionEntry is a scheduled opportunity to convert maturing credit
// value into spendable debit proofs.
type RedemptionEntry struct {
	KeysetID string        `json:"keysetID"`
	Amount   models.Amount `json:"amount"`
	Unit     string        `json:"unit"`
	Maturity time.Time     `json:"maturity"`
}

// creditGroup is the wallet's available credit proofs under one keyset.
type creditGroup struct {
	keyset models.Keyset
	proofs []models.Proof
}

// creditGroups returns the wallet's credit proofs grouped by keyset,
// sorted by maturity ascending.
func (n *PocketNode) creditGroups(wallet *models.Wallet) ([]creditGroup, error) {
	if wallet.CreditUnit == "" {
		return nil, nil
	}
	var (
		proofs  []models.Proof
		keysets []models.Keyset
	)
	err := n.db.View(func(tx database.Tx) error {
		err := tx.Read().
			Where("wallet_id = ? AND unit = ? AND status = ?", wallet.ID, wallet.CreditUnit, models.ProofAvailable).
			Find(&proofs).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		err = tx.Read().
			Where("wallet_id = ? AND unit = ?", wallet.ID, wallet.CreditUnit).
			Find(&keysets).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Keyset, len(keysets))
	for _, ks := range keysets {
		byID[ks.ID] = ks
	}

	grouped := make(map[string]*creditGroup)
	for _, p := range proofs {
		keyset, ok := byID[p.KeysetID]
		if !ok || keyset.FinalExpiry == 0 {
			continue
		}
		group, ok := grouped[p.KeysetID]
		if !ok {
			group = &creditGroup{keyset: keyset}
			grouped[p.KeysetID] = group
		}
		group.proofs = append(group.proofs, p)
	}

	groups := make([]creditGroup, 0, len(grouped))
	for _, group := range grouped {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].keyset.FinalExpiry != groups[j].keyset.FinalExpiry {
			return groups[i].keyset.FinalExpiry < groups[j].keyset.FinalExpiry
		}
		return groups[i].keyset.ID < groups[j].keyset.ID
	})
	return groups, nil
}

// ListRedemptions returns the wallet's redemption plan: one entry per
// credit keyset whose maturity falls within [now, now+horizon], ordered
// by maturity ascending. A pure read; safe to restart at any time.
func (n *PocketNode) ListRedemptions(walletID string, horizonSecs int64) ([]RedemptionEntry, error) {
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return nil, err
	}
	groups, err := n.creditGroups(wallet)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	horizon := now + horizonSecs
	var entries []RedemptionEntry
	for _, group := range groups {
		expiry := group.keyset.FinalExpiry
		if expiry < now || expiry > horizon {
			continue
		}
		entries = append(entries, RedemptionEntry{
			KeysetID: group.keyset.ID,
			Amount:   models.SumProofs(group.proofs),
			Unit:     wallet.CreditUnit,
			Maturity: time.Unix(expiry, 0),
		})
	}
	return entries, nil
}

// RedeemCredit converts the earliest matured credit group into debit
// proofs via the mint and settles an inbound ledger entry for the
// conversion. Returns the amount redeemed; when nothing has matured it
// returns 0 without touching any state.
func (n *PocketNode) RedeemCredit(ctx context.Context, walletID string) (models.Amount, error) {
	defer n.lockWallet(walletID)()

	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return 0, err
	}
	groups, err := n.creditGroups(wallet)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	var matured *creditGroup
	for i := range groups {
		if groups[i].keyset.FinalExpiry <= now {
			matured = &groups[i]
			break
		}
	}
	if matured == nil {
		return 0, nil
	}

	// The redemption target is the opposite unit of the wallet's pair.
	pair := fees.UnitPair{Debit: wallet.DebitUnit, Credit: wallet.CreditUnit}
	targetUnit, ok := pair.Other(matured.keyset.Unit)
	if !ok {
		return 0, ErrUnsupportedUnit
	}

	mc := n.dial(wallet.MintURL)
	debitKeyset, err := n.activeKeyset(ctx, mc, walletID, targetUnit)
	if err != nil {
		return 0, err
	}

	amount := models.SumProofs(matured.proofs)
	breakdown, err := fees.ForSwap(amount, len(matured.proofs), feeSchedule(&matured.keyset))
	if err != nil {
		return 0, err
	}
	swapFee := breakdown.Total()
	if amount <= swapFee {
		return 0, nil
	}
	redeemed := amount - swapFee

	reservationID := uuid.New().String()
	var txID string
	err = n.db.Update(func(tx database.Tx) error {
		txID, err = n.ledger.Begin(tx, walletID, models.TxIn, redeemed, targetUnit, "credit redemption")
		if err != nil {
			return err
		}
		return n.store.Reserve(tx, reservationID, matured.proofs)
	})
	if err != nil {
		return 0, err
	}

	outputs, err := n.store.OutputsFor(wallet, debitKeyset.ID, redeemed)
	var fresh []mint.Proof
	if err == nil {
		fresh, err = mc.Swap(ctx, pocket.ToWireAll(matured.proofs), outputs)
	}
	if err != nil {
		rberr := n.db.Update(func(tx database.Tx) error {
			if err := n.store.Rollback(tx, reservationID); err != nil {
				return err
			}
			return n.ledger.Fail(tx, txID, err.Error())
		})
		if rberr != nil {
			log.Errorf("Wallet %s: rollback of redemption %s failed: %s", walletID, txID, rberr)
		}
		return 0, err
	}

	debitProofs := pocket.FromWireAll(walletID, targetUnit, fresh)
	err = n.db.Update(func(tx database.Tx) error {
		if err := n.store.Commit(tx, reservationID, debitProofs); err != nil {
			return err
		}
		ids := make([]string, len(debitProofs))
		for i, p := range debitProofs {
			ids[i] = p.ID
		}
		if err := n.ledger.Settle(tx, txID, swapFee, ids); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.CreditRedeemedNotification{
			WalletID:      walletID,
			TransactionID: txID,
			Amount:        redeemed,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Infof("Wallet %s: redeemed %d %s into %s, tx %s", walletID, redeemed, matured.keyset.Unit, targetUnit, txID)
	return redeemed, nil
}

// CleanLocalDB purges proofs the mint confirms as spent and returns the
// number removed. Idempotent; repeated calls settle into no-ops.
func (n *PocketNode) CleanLocalDB(ctx context.Context, walletID string) (int, error) {
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return 0, err
	}
	return n.store.Clean(ctx, n.dial(wallet.MintURL), walletID)
}
