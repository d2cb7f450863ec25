package pocket

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/jinzhu/gorm"
)

// NewSecret returns a fresh random proof secret.
func NewSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ProofID derives the proof's identity hash from its secret. The mint
// reports spend state against the same hash so it doubles as the
// reconciliation key.
func ProofID(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// keysetBranch maps a keyset id onto a hardened child index.
func keysetBranch(keysetID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(keysetID))
	return hdkeychain.HardenedKeyStart + (h.Sum32() % hdkeychain.HardenedKeyStart)
}

// DeriveSecrets deterministically derives count proof secrets for the
// keyset starting at index start. The derivation path is
// xpriv / branch(keysetID)' / index, with the secret taken as the hash of
// the child public key, so the same mnemonic always reproduces the same
// secrets for restore.
func DeriveSecrets(xpriv, keysetID string, start, count uint32) ([]string, error) {
	master, err := hdkeychain.NewKeyFromString(xpriv)
	if err != nil {
		return nil, err
	}
	branch, err := master.Child(keysetBranch(keysetID))
	if err != nil {
		return nil, err
	}

	secrets := make([]string, 0, count)
	for i := start; i < start+count; i++ {
		child, err := branch.Child(i)
		if err != nil {
			return nil, err
		}
		pub, err := child.ECPubKey()
		if err != nil {
			return nil, err
		}
		h := sha256.Sum256(pub.SerializeCompressed())
		secrets = append(secrets, hex.EncodeToString(h[:]))
	}
	return secrets, nil
}

// OutputsFor builds the blind outputs covering the given amounts against
// keysetID, one output per power-of-two denomination. Secrets come from
// the wallet's deterministic derivation sequence and the keyset counter
// is advanced past them atomically before any secret leaves this call,
// so an interrupted exchange can never reuse an index and a restore from
// the same mnemonic re-derives every proof the mint ever signed.
func (s *Store) OutputsFor(wallet *models.Wallet, keysetID string, amounts ...models.Amount) ([]mint.Output, error) {
	var parts []models.Amount
	for _, amount := range amounts {
		parts = append(parts, amount.Split()...)
	}
	if len(parts) == 0 {
		return nil, nil
	}

	var start uint32
	err := s.db.Update(func(tx database.Tx) error {
		var counter models.KeysetCounter
		err := tx.Read().
			Where("keyset_id = ? AND wallet_id = ?", keysetID, wallet.ID).
			First(&counter).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		start = counter.Counter
		return tx.Save(&models.KeysetCounter{
			KeysetID: keysetID,
			WalletID: wallet.ID,
			Counter:  start + uint32(len(parts)),
		})
	})
	if err != nil {
		return nil, err
	}

	secrets, err := DeriveSecrets(wallet.Xpriv, keysetID, start, uint32(len(parts)))
	if err != nil {
		return nil, err
	}
	outputs := make([]mint.Output, len(parts))
	for i, part := range parts {
		outputs[i] = mint.Output{
			Amount:   part,
			KeysetID: keysetID,
			Secret:   secrets[i],
		}
	}
	return outputs, nil
}

// FromWire converts a proof received from the mint into the stored model.
func FromWire(walletID, unit string, p mint.Proof) models.Proof {
	return models.Proof{
		ID:        ProofID(p.Secret),
		WalletID:  walletID,
		Amount:    p.Amount,
		Unit:      unit,
		KeysetID:  p.KeysetID,
		Secret:    p.Secret,
		Signature: p.Signature,
		Status:    models.ProofAvailable,
	}
}

// FromWireAll converts a batch of mint proofs into stored models.
func FromWireAll(walletID, unit string, proofs []mint.Proof) []models.Proof {
	out := make([]models.Proof, len(proofs))
	for i, p := range proofs {
		out[i] = FromWire(walletID, unit, p)
	}
	return out
}

// ToWire converts a stored proof into its mint wire form.
func ToWire(p models.Proof) mint.Proof {
	return mint.Proof{
		Amount:    p.Amount,
		KeysetID:  p.KeysetID,
		Secret:    p.Secret,
		Signature: p.Signature,
	}
}

// ToWireAll converts a batch of stored proofs into their wire form.
func ToWireAll(proofs []models.Proof) []mint.Proof {
	out := make([]mint.Proof, len(proofs))
	for i, p := range proofs {
		out[i] = ToWire(p)
	}
	return out
}
