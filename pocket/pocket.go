package pocket

import (
	"context"
	"errors"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/jinzhu/gorm"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("PCKT")

var (
	// ErrInsufficientFunds is returned when the available proofs cannot
	// cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrProofLocked is returned when a proof in the selection is already
	// held by another in-flight reservation.
	ErrProofLocked = errors.New("proof locked by another operation")
)

// Store is the durable set of bearer proofs held by the node's wallets.
// All mutations run inside managed database transactions so a crash can
// never leave a proof half-reserved.
type Store struct {
	db database.Database
}

// NewStore returns a Store backed by db.
func NewStore(db database.Database) *Store {
	return &Store{db: db}
}

// Selection is the result of selecting proofs to cover an amount. When
// Total exceeds the requested amount the last proof is the swap proof: it
// must be split at the mint for exact change before spending.
type Selection struct {
	Proofs []models.Proof
	Total  models.Amount
}

// NeedsSwap returns whether the selection overshoots amount and requires
// a change swap.
func (s *Selection) NeedsSwap(amount models.Amount) bool {
	return s.Total > amount
}

// SwapProof returns the proof designated for the change swap. Only
// meaningful when NeedsSwap is true.
func (s *Selection) SwapProof() models.Proof {
	return s.Proofs[len(s.Proofs)-1]
}

// IDs returns the ids of the selected proofs.
func (s *Selection) IDs() []string {
	ids := make([]string, len(s.Proofs))
	for i, p := range s.Proofs {
		ids[i] = p.ID
	}
	return ids
}

// SelectProofs chooses available proofs of the given unit covering amount.
//
// The policy is greedy descending: proofs are considered largest first and
// taken whenever they fit under the remaining need, which prefers exact
// matches and minimizes proof count. If the need cannot be met exactly,
// the smallest remaining proof large enough to cover the gap is appended
// as the swap proof. Ties break on proof id so the selection is
// deterministic. Nothing is reserved by this call.
func (s *Store) SelectProofs(tx database.Tx, walletID string, amount models.Amount, unit string) (*Selection, error) {
	if amount == 0 {
		return nil, errors.New("zero amount")
	}

	var available []models.Proof
	err := tx.Read().
		Where("wallet_id = ? AND unit = ? AND status = ?", walletID, unit, models.ProofAvailable).
		Order("amount desc, id asc").
		Find(&available).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}

	need := amount
	selected := make([]models.Proof, 0, 4)
	taken := make(map[string]bool)
	for _, p := range available {
		if p.Amount <= need {
			selected = append(selected, p)
			taken[p.ID] = true
			need -= p.Amount
			if need == 0 {
				break
			}
		}
	}

	if need > 0 {
		// Every unselected proof is strictly larger than the remaining
		// need, so the smallest of them closes the gap with the least
		// overshoot. It becomes the swap proof.
		var swap *models.Proof
		for i := len(available) - 1; i >= 0; i-- {
			if !taken[available[i].ID] {
				swap = &available[i]
				break
			}
		}
		if swap == nil {
			return nil, ErrInsufficientFunds
		}
		selected = append(selected, *swap)
	}

	return &Selection{Proofs: selected, Total: models.SumProofs(selected)}, nil
}

// Reserve atomically marks the given proofs pending under reservationID.
// If any proof is no longer available the whole reservation fails with
// ErrProofLocked and no proof is touched, provided the surrounding managed
// transaction rolls back on error as it must.
func (s *Store) Reserve(tx database.Tx, reservationID string, proofs []models.Proof) error {
	ids := make([]string, len(proofs))
	for i, p := range proofs {
		ids[i] = p.ID
	}
	res := tx.Read().Model(&models.Proof{}).
		Where("id IN (?) AND status = ?", ids, models.ProofAvailable).
		Updates(map[string]interface{}{
			"status":         models.ProofPending,
			"reservation_id": reservationID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return ErrProofLocked
	}
	return nil
}

// Commit resolves a reservation after a successful mint exchange: the
// reserved proofs become spent and newProofs are stored as available.
func (s *Store) Commit(tx database.Tx, reservationID string, newProofs []models.Proof) error {
	err := tx.Update("status", models.ProofSpent,
		map[string]interface{}{"reservation_id = ?": reservationID, "status = ?": models.ProofPending},
		&models.Proof{})
	if err != nil {
		return err
	}
	for _, p := range newProofs {
		p.Status = models.ProofAvailable
		if err := tx.Save(&p); err != nil {
			return err
		}
	}
	return nil
}

// Rollback releases every proof held by the reservation back to
// available. Releasing a reservation that no longer holds proofs is a
// no-op, so rollback is idempotent.
func (s *Store) Rollback(tx database.Tx, reservationID string) error {
	res := tx.Read().Model(&models.Proof{}).
		Where("reservation_id = ? AND status = ?", reservationID, models.ProofPending).
		Updates(map[string]interface{}{
			"status":         models.ProofAvailable,
			"reservation_id": "",
		})
	return res.Error
}

// Stale returns the proofs of the wallet that have sat in a reservation
// since before cutoff, left behind by an interrupted operation.
func (s *Store) Stale(tx database.Tx, walletID string, cutoff time.Time) ([]models.Proof, error) {
	var proofs []models.Proof
	err := tx.Read().
		Where("wallet_id = ? AND status = ? AND updated_at <= ?", walletID, models.ProofPending, cutoff).
		Find(&proofs).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}
	return proofs, nil
}

// Release returns the given proofs to available regardless of which
// reservation holds them. Used by recovery after the mint confirms they
// are unspent.
func (s *Store) Release(tx database.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Read().Model(&models.Proof{}).
		Where("id IN (?)", ids).
		Updates(map[string]interface{}{
			"status":         models.ProofAvailable,
			"reservation_id": "",
		}).Error
}

// MarkSpent marks the given proofs spent. Used by recovery when the mint
// reports a reserved proof was in fact consumed.
func (s *Store) MarkSpent(tx database.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Read().Model(&models.Proof{}).
		Where("id IN (?)", ids).
		Update("status", models.ProofSpent).Error
}

// Balance returns the sum of available proofs of the given unit. Pending
// and spent proofs do not count toward the balance.
func (s *Store) Balance(walletID, unit string) (models.Amount, error) {
	var total models.Amount
	err := s.db.View(func(tx database.Tx) error {
		var proofs []models.Proof
		err := tx.Read().
			Where("wallet_id = ? AND unit = ? AND status = ?", walletID, unit, models.ProofAvailable).
			Find(&proofs).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		total = models.SumProofs(proofs)
		return nil
	})
	return total, err
}

// Proofs returns all proofs of the wallet in the given status.
func (s *Store) Proofs(walletID string, status models.ProofStatus) ([]models.Proof, error) {
	var proofs []models.Proof
	err := s.db.View(func(tx database.Tx) error {
		err := tx.Read().
			Where("wallet_id = ? AND status = ?", walletID, status).
			Find(&proofs).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	return proofs, err
}

// Clean purges proofs the mint confirms as spent and returns how many were
// removed. Available proofs the mint unexpectedly reports spent are marked
// spent for the next sweep but never removed here. Pending proofs are left
// alone; they belong to reclaim. Safe to call at any time.
func (s *Store) Clean(ctx context.Context, mc mint.Connector, walletID string) (int, error) {
	var candidates []models.Proof
	err := s.db.View(func(tx database.Tx) error {
		err := tx.Read().
			Where("wallet_id = ? AND status IN (?)", walletID, []models.ProofStatus{models.ProofSpent, models.ProofAvailable}).
			Find(&candidates).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	secrets := make([]string, len(candidates))
	for i, p := range candidates {
		secrets[i] = p.Secret
	}
	states, err := mc.CheckProofStates(ctx, secrets)
	if err != nil {
		return 0, err
	}

	var (
		purge      []string
		reconciled []string
	)
	for i, p := range candidates {
		if states[i] != mint.ProofStateSpent {
			continue
		}
		if p.Status == models.ProofSpent {
			purge = append(purge, p.ID)
		} else {
			reconciled = append(reconciled, p.ID)
		}
	}

	err = s.db.Update(func(tx database.Tx) error {
		if len(purge) > 0 {
			if err := tx.Read().Where("id IN (?)", purge).Delete(&models.Proof{}).Error; err != nil {
				return err
			}
		}
		return s.MarkSpent(tx, reconciled)
	})
	if err != nil {
		return 0, err
	}
	if len(reconciled) > 0 {
		log.Warningf("Wallet %s: %d available proofs were spent at the mint, marked spent", walletID, len(reconciled))
	}
	log.Debugf("Wallet %s: purged %d spent proofs", walletID, len(purge))
	return len(purge), nil
}
