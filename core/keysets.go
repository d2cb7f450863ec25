package core

import (
	"context"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/jinzhu/gorm"
)

// syncKeysets refreshes the local keyset cache for the wallet from the
// mint and returns the fetched keysets.
func (n *PocketNode) syncKeysets(ctx context.Context, mc mint.Connector, walletID string) ([]models.Keyset, error) {
	infos, err := mc.GetKeysets(ctx)
	if err != nil {
		return nil, err
	}
	keysets := make([]models.Keyset, len(infos))
	for i, info := range infos {
		keysets[i] = models.Keyset{
			ID:          info.ID,
			WalletID:    walletID,
			Unit:        info.Unit,
			Active:      info.Active,
			InputFeePPK: info.InputFeePPK,
			FinalExpiry: info.FinalExpiry,
		}
	}
	err = n.db.Update(func(tx database.Tx) error {
		for _, ks := range keysets {
			if err := tx.Save(&ks); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keysets, nil
}

// activeKeyset returns the wallet's cached active keyset for the given
// unit, falling back to a sync against the mint when the cache is cold.
func (n *PocketNode) activeKeyset(ctx context.Context, mc mint.Connector, walletID, unit string) (*models.Keyset, error) {
	lookup := func() (*models.Keyset, error) {
		var keyset models.Keyset
		err := n.db.View(func(tx database.Tx) error {
			return tx.Read().
				Where("wallet_id = ? AND unit = ? AND active = ?", walletID, unit, true).
				First(&keyset).Error
		})
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &keyset, nil
	}

	keyset, err := lookup()
	if err == ErrNotFound {
		if _, serr := n.syncKeysets(ctx, mc, walletID); serr != nil {
			return nil, serr
		}
		keyset, err = lookup()
	}
	return keyset, err
}

// feeSchedule returns the fee parameters of the given keyset.
func feeSchedule(keyset *models.Keyset) fees.Schedule {
	return fees.Schedule{InputFeePPK: keyset.InputFeePPK}
}
