package core

import (
	"context"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/tyler-smith/go-bip39"
)

// walletKeyPurpose is the hardened child index wallet keys are derived
// under, so that other uses of the same master key can never collide
// with proof secret derivation.
const walletKeyPurpose = 129372

// Balances is the per-unit view of a wallet's holdings.
type Balances struct {
	Debit      models.Amount `json:"debit"`
	DebitUnit  string        `json:"debitUnit"`
	Credit     models.Amount `json:"credit"`
	CreditUnit string        `json:"creditUnit"`
}

// deriveWalletXpriv turns a mnemonic into the wallet's extended private
// key at m/129372'.
func deriveWalletXpriv(mnemonic string) (string, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	purpose, err := master.Child(hdkeychain.HardenedKeyStart + walletKeyPurpose)
	if err != nil {
		return "", err
	}
	return purpose.String(), nil
}

// NewMnemonic generates a fresh 12 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// AddWallet registers a new empty wallet against the given mint. The
// mnemonic must pass checksum validation and the name must be unused.
func (n *PocketNode) AddWallet(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error) {
	xpriv, err := deriveWalletXpriv(mnemonic)
	if err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		ID:         uuid.New().String(),
		Name:       name,
		MintURL:    mintURL,
		DebitUnit:  debitUnit,
		CreditUnit: creditUnit,
		Xpriv:      xpriv,
	}

	err = n.db.Update(func(tx database.Tx) error {
		var existing models.Wallet
		err := tx.Read().Where("name = ?", name).First(&existing).Error
		if err == nil {
			return ErrWalletExists
		}
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		if err := tx.Save(wallet); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.WalletAddedNotification{WalletID: wallet.ID, Name: name})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Prime the keyset cache. A down mint is not fatal here; keysets are
	// re-fetched lazily on first use.
	if _, err := n.syncKeysets(context.Background(), n.dial(mintURL), wallet.ID); err != nil {
		log.Warningf("Wallet %s: could not fetch keysets from %s: %s", wallet.ID, mintURL, err)
	}

	log.Infof("Added wallet %s (%s)", name, wallet.ID)
	return wallet, nil
}

// RestoreWallet registers a wallet from an existing mnemonic and rebuilds
// its proofs by scanning every keyset the mint knows against the derived
// secret sequence. This is the only path that may populate a non-empty
// proof store at creation time.
func (n *PocketNode) RestoreWallet(ctx context.Context, name, mintURL, mnemonic string) (*models.Wallet, error) {
	xpriv, err := deriveWalletXpriv(mnemonic)
	if err != nil {
		return nil, err
	}

	mc := n.dial(mintURL)
	infos, err := mc.GetKeysets(ctx)
	if err != nil {
		if mint.IsRetryable(err) {
			return nil, ErrMintUnreachable
		}
		return nil, err
	}

	wallet := &models.Wallet{
		ID:      uuid.New().String(),
		Name:    name,
		MintURL: mintURL,
		Xpriv:   xpriv,
	}

	// Infer the unit pair from the mint's keysets: the expiring keysets
	// form the credit track.
	for _, info := range infos {
		if info.FinalExpiry == 0 && wallet.DebitUnit == "" {
			wallet.DebitUnit = info.Unit
		}
		if info.FinalExpiry != 0 && wallet.CreditUnit == "" {
			wallet.CreditUnit = info.Unit
		}
	}
	if wallet.DebitUnit == "" {
		wallet.DebitUnit = "sat"
	}

	err = n.db.Update(func(tx database.Tx) error {
		var existing models.Wallet
		err := tx.Read().Where("name = ?", name).First(&existing).Error
		if err == nil {
			return ErrWalletExists
		}
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		if err := tx.Save(wallet); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.WalletAddedNotification{WalletID: wallet.ID, Name: name, Restored: true})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := n.syncKeysets(ctx, mc, wallet.ID); err != nil {
		return nil, err
	}

	var restored models.Amount
	for _, info := range infos {
		_, amount, err := n.store.Restore(ctx, mc, wallet, info)
		if err != nil {
			if mint.IsRetryable(err) {
				return nil, ErrMintUnreachable
			}
			return nil, err
		}
		restored += amount
	}

	log.Infof("Restored wallet %s (%s), recovered %d", name, wallet.ID, restored)
	return wallet, nil
}

// ListWallets returns all registered wallets.
func (n *PocketNode) ListWallets() ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := n.db.View(func(tx database.Tx) error {
		err := tx.Read().Order("created_at asc").Find(&wallets).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	return wallets, err
}

// WalletByName returns the wallet with the given display name.
func (n *PocketNode) WalletByName(name string) (*models.Wallet, error) {
	return n.loadWallet("name = ?", name)
}

// WalletByID returns the wallet with the given id.
func (n *PocketNode) WalletByID(id string) (*models.Wallet, error) {
	return n.loadWallet("id = ?", id)
}

func (n *PocketNode) loadWallet(query string, arg interface{}) (*models.Wallet, error) {
	var wallet models.Wallet
	err := n.db.View(func(tx database.Tx) error {
		err := tx.Read().Where(query, arg).First(&wallet).Error
		if gorm.IsRecordNotFoundError(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Balance returns the wallet's debit and credit balances. Only available
// proofs count; reserved and spent proofs do not.
func (n *PocketNode) Balance(walletID string) (*Balances, error) {
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return nil, err
	}
	debit, err := n.store.Balance(walletID, wallet.DebitUnit)
	if err != nil {
		return nil, err
	}
	var credit models.Amount
	if wallet.CreditUnit != "" {
		credit, err = n.store.Balance(walletID, wallet.CreditUnit)
		if err != nil {
			return nil, err
		}
	}
	return &Balances{
		Debit:      debit,
		DebitUnit:  wallet.DebitUnit,
		Credit:     credit,
		CreditUnit: wallet.CreditUnit,
	}, nil
}

// RemoveWallet deletes the wallet and every record it owns. The bearer
// proofs are destroyed with it, so callers are expected to have drained
// the wallet first.
func (n *PocketNode) RemoveWallet(walletID string) error {
	defer n.lockWallet(walletID)()

	if _, err := n.WalletByID(walletID); err != nil {
		return err
	}
	return n.db.Update(func(tx database.Tx) error {
		for _, model := range []interface{}{
			&models.Proof{},
			&models.Transaction{},
			&models.Keyset{},
			&models.KeysetCounter{},
			&models.PendingQuote{},
		} {
			if err := tx.Delete("wallet_id", walletID, nil, model); err != nil {
				return err
			}
		}
		return tx.Delete("id", walletID, nil, &models.Wallet{})
	})
}
