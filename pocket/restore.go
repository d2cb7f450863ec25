package pocket

import (
	"context"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/jinzhu/gorm"
)

const (
	// restoreBatchSize is how many derived secrets are probed against the
	// mint per restore round trip.
	restoreBatchSize = 100

	// restoreEmptyLimit is how many consecutive empty batches end the
	// scan. Gaps smaller than this in the derivation sequence are
	// tolerated.
	restoreEmptyLimit = 3
)

// Restore rebuilds the wallet's proofs for one keyset by re-deriving
// secrets from the wallet key and asking the mint which of them it has
// signed. Confirmed unspent proofs are stored as available; spent ones
// are skipped. The keyset counter is advanced past the highest secret the
// mint knew so future derivations never reuse an index. Returns the
// number of proofs recovered and their total amount.
func (s *Store) Restore(ctx context.Context, mc mint.Connector, wallet *models.Wallet, keyset mint.KeysetInfo) (int, models.Amount, error) {
	var (
		recovered   []models.Proof
		emptyRounds int
		next        uint32
		highest     uint32
		found       bool
	)

	for emptyRounds < restoreEmptyLimit {
		secrets, err := DeriveSecrets(wallet.Xpriv, keyset.ID, next, restoreBatchSize)
		if err != nil {
			return 0, 0, err
		}
		indexOf := make(map[string]uint32, len(secrets))
		for i, secret := range secrets {
			indexOf[secret] = next + uint32(i)
		}

		proofs, err := mc.Restore(ctx, secrets)
		if err != nil {
			return 0, 0, err
		}

		if len(proofs) == 0 {
			emptyRounds++
			next += restoreBatchSize
			continue
		}
		emptyRounds = 0

		proofSecrets := make([]string, len(proofs))
		for i, p := range proofs {
			proofSecrets[i] = p.Secret
		}
		states, err := mc.CheckProofStates(ctx, proofSecrets)
		if err != nil {
			return 0, 0, err
		}

		for i, p := range proofs {
			idx, ok := indexOf[p.Secret]
			if !ok {
				continue
			}
			if !found || idx > highest {
				highest = idx
				found = true
			}
			if states[i] == mint.ProofStateSpent {
				continue
			}
			recovered = append(recovered, FromWire(wallet.ID, keyset.Unit, p))
		}
		next += restoreBatchSize
	}

	err := s.db.Update(func(tx database.Tx) error {
		for _, p := range recovered {
			// A proof may already be present from a previous partial
			// restore; keep the existing record.
			var existing models.Proof
			err := tx.Read().Where("id = ?", p.ID).First(&existing).Error
			if err == nil {
				continue
			}
			if !gorm.IsRecordNotFoundError(err) {
				return err
			}
			if err := tx.Save(&p); err != nil {
				return err
			}
		}
		if found {
			return tx.Save(&models.KeysetCounter{
				KeysetID: keyset.ID,
				WalletID: wallet.ID,
				Counter:  highest + 1,
			})
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	total := models.SumProofs(recovered)
	if len(recovered) > 0 {
		log.Infof("Wallet %s: restored %d proofs (%d %s) for keyset %s", wallet.ID, len(recovered), total, keyset.Unit, keyset.ID)
	}
	return len(recovered), total, nil
}
