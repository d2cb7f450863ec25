package core

import (
	"context"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/bitcr/pocketd/pocket"
	"github.com/google/uuid"
)

// SendSummary is the quoted cost of producing an offline token. Valid for
// a short window and consumed by the matching Send call.
type SendSummary struct {
	RequestID string         `json:"requestID"`
	WalletID  string         `json:"walletID"`
	Amount    models.Amount  `json:"amount"`
	Unit      string         `json:"unit"`
	Fees      fees.Breakdown `json:"fees"`
}

// PrepareSend quotes the fees for sending amount as an offline token from
// the wallet's debit balance. Nothing is reserved.
func (n *PocketNode) PrepareSend(walletID string, amount models.Amount) (*SendSummary, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return nil, err
	}

	mc := n.dial(wallet.MintURL)
	keyset, err := n.activeKeyset(context.Background(), mc, walletID, wallet.DebitUnit)
	if err != nil {
		return nil, err
	}

	var breakdown fees.Breakdown
	err = n.db.View(func(tx database.Tx) error {
		sel, err := n.store.SelectProofs(tx, walletID, amount, wallet.DebitUnit)
		if err != nil {
			return err
		}
		swapInputs := 0
		if sel.NeedsSwap(amount) {
			swapInputs = 1
		}
		breakdown, err = fees.ForSend(amount, len(sel.Proofs), swapInputs, feeSchedule(keyset))
		return err
	})
	if err != nil {
		return nil, err
	}

	summary := &SendSummary{
		RequestID: uuid.New().String(),
		WalletID:  walletID,
		Amount:    amount,
		Unit:      wallet.DebitUnit,
		Fees:      breakdown,
	}
	n.summaries.Put(summary.RequestID, walletID, "send", summary)
	return summary, nil
}

// Send executes a prepared send and returns the transaction id and the
// serialized token. When the selection overshoots, the designated swap
// proof is split at the mint for exact change; the change stays in the
// wallet and the token carries exactly the requested amount. Failures
// after the reservation roll everything back.
func (n *PocketNode) Send(ctx context.Context, requestID, memo string) (string, string, error) {
	cached, err := n.summaries.Take(requestID)
	if err != nil {
		return "", "", err
	}
	summary, ok := cached.(*SendSummary)
	if !ok {
		return "", "", ErrStaleRequest
	}

	defer n.lockWallet(summary.WalletID)()

	wallet, err := n.WalletByID(summary.WalletID)
	if err != nil {
		return "", "", err
	}
	mc := n.dial(wallet.MintURL)
	keyset, err := n.activeKeyset(ctx, mc, wallet.ID, summary.Unit)
	if err != nil {
		return "", "", err
	}

	reservationID := uuid.New().String()
	var (
		txID     string
		reserved *pocket.Selection
	)
	err = n.db.Update(func(tx database.Tx) error {
		txID, err = n.ledger.Begin(tx, wallet.ID, models.TxOut, summary.Amount, summary.Unit, memo)
		if err != nil {
			return err
		}
		reserved, err = n.store.SelectProofs(tx, wallet.ID, summary.Amount, summary.Unit)
		if err != nil {
			return err
		}
		return n.store.Reserve(tx, reservationID, reserved.Proofs)
	})
	if err != nil {
		return "", "", err
	}

	var (
		tokenProofs []mint.Proof
		change      []models.Proof
		feePaid     models.Amount
	)
	if reserved.NeedsSwap(summary.Amount) {
		swapProof := reserved.SwapProof()
		for _, p := range reserved.Proofs[:len(reserved.Proofs)-1] {
			tokenProofs = append(tokenProofs, pocket.ToWire(p))
		}
		carried := reserved.Total - swapProof.Amount

		// Split the swap proof into the exact remainder for the token
		// plus change that stays behind. The swap's input fee comes out
		// of the change.
		needed := summary.Amount - carried
		swapFee := fees.InputFee(1, feeSchedule(keyset))
		if swapProof.Amount < needed+swapFee {
			n.abortSend(wallet.ID, reservationID, txID, ErrInsufficientFunds)
			return "", "", ErrInsufficientFunds
		}
		changeAmt := swapProof.Amount - needed - swapFee
		feePaid = swapFee

		outputs, err := n.store.OutputsFor(wallet, keyset.ID, needed, changeAmt)
		if err != nil {
			n.abortSend(wallet.ID, reservationID, txID, err)
			return "", "", err
		}
		nSend := len(needed.Split())

		swapped, err := mc.Swap(ctx, []mint.Proof{pocket.ToWire(swapProof)}, outputs)
		if err != nil || len(swapped) != len(outputs) {
			n.abortSend(wallet.ID, reservationID, txID, err)
			if err == nil {
				err = &mint.Error{Op: "swap", Reason: "output count mismatch"}
			}
			return "", "", err
		}
		tokenProofs = append(tokenProofs, swapped[:nSend]...)
		change = pocket.FromWireAll(wallet.ID, summary.Unit, swapped[nSend:])
	} else {
		tokenProofs = pocket.ToWireAll(reserved.Proofs)
	}

	token := &models.Token{
		MintURL: wallet.MintURL,
		Unit:    summary.Unit,
		Memo:    memo,
	}
	proofRefs := make([]string, 0, len(tokenProofs))
	for _, p := range tokenProofs {
		token.Proofs = append(token.Proofs, models.TokenProof{
			Amount:    p.Amount,
			KeysetID:  p.KeysetID,
			Secret:    p.Secret,
			Signature: p.Signature,
		})
		proofRefs = append(proofRefs, pocket.ProofID(p.Secret))
	}

	err = n.db.Update(func(tx database.Tx) error {
		if err := n.store.Commit(tx, reservationID, change); err != nil {
			return err
		}
		if err := n.ledger.Settle(tx, txID, feePaid, proofRefs); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.TokenSentNotification{
			WalletID:      wallet.ID,
			TransactionID: txID,
			Amount:        summary.Amount,
			Unit:          summary.Unit,
		})
		return nil
	})
	if err != nil {
		return "", "", err
	}

	log.Infof("Wallet %s: sent token for %d %s, tx %s", wallet.ID, summary.Amount, summary.Unit, txID)
	return txID, token.String(), nil
}

func (n *PocketNode) abortSend(walletID, reservationID, txID string, cause error) {
	reason := "send did not complete"
	if cause != nil {
		reason = cause.Error()
	}
	err := n.db.Update(func(tx database.Tx) error {
		if err := n.store.Rollback(tx, reservationID); err != nil {
			return err
		}
		return n.ledger.Fail(tx, txID, reason)
	})
	if err != nil {
		log.Errorf("Wallet %s: rollback of send %s failed: %s", walletID, txID, err)
	}
}

// ReceiveToken claims an offline token into the wallet. The token's
// proofs are swapped at the mint for fresh ones so the sender can no
// longer double-spend them; the fresh proofs are stored available and a
// settled inbound ledger entry is appended. Replaying a claimed token
// fails with ErrAlreadySpent and does not change the balance.
func (n *PocketNode) ReceiveToken(ctx context.Context, walletID, tokenString string) (string, error) {
	defer n.lockWallet(walletID)()

	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return "", err
	}
	token, err := models.ParseToken(tokenString)
	if err != nil {
		return "", ErrInvalidToken
	}
	if token.MintURL != wallet.MintURL {
		return "", ErrInvalidToken
	}
	if token.Unit != wallet.DebitUnit && token.Unit != wallet.CreditUnit {
		return "", ErrUnsupportedUnit
	}
	value, err := token.Value()
	if err != nil {
		return "", ErrInvalidToken
	}

	mc := n.dial(wallet.MintURL)

	secrets := make([]string, len(token.Proofs))
	inputs := make([]mint.Proof, len(token.Proofs))
	for i, p := range token.Proofs {
		secrets[i] = p.Secret
		inputs[i] = mint.Proof{
			Amount:    p.Amount,
			KeysetID:  p.KeysetID,
			Secret:    p.Secret,
			Signature: p.Signature,
		}
	}
	states, err := mc.CheckProofStates(ctx, secrets)
	if err != nil {
		return "", err
	}
	for _, state := range states {
		if state == mint.ProofStateSpent {
			return "", ErrAlreadySpent
		}
	}

	keyset, err := n.activeKeyset(ctx, mc, walletID, token.Unit)
	if err != nil {
		return "", err
	}
	breakdown, err := fees.ForSwap(value, len(inputs), feeSchedule(keyset))
	if err != nil {
		return "", ErrInvalidToken
	}
	swapFee := breakdown.Total()
	if value <= swapFee {
		return "", ErrInvalidToken
	}
	outputs, err := n.store.OutputsFor(wallet, keyset.ID, value-swapFee)
	if err != nil {
		return "", err
	}

	fresh, err := mc.Swap(ctx, inputs, outputs)
	if err != nil {
		// The sender may race us to the mint between the state check
		// above and the swap.
		if mint.IsSpent(err) {
			return "", ErrAlreadySpent
		}
		return "", err
	}

	stored := pocket.FromWireAll(walletID, token.Unit, fresh)
	var txID string
	err = n.db.Update(func(tx database.Tx) error {
		ids := make([]string, len(stored))
		for i, p := range stored {
			if err := tx.Save(&p); err != nil {
				return err
			}
			ids[i] = p.ID
		}
		txID, err = n.ledger.Begin(tx, walletID, models.TxIn, value-swapFee, token.Unit, token.Memo)
		if err != nil {
			return err
		}
		if err := n.ledger.Settle(tx, txID, swapFee, ids); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.TokenReceivedNotification{
			WalletID:      walletID,
			TransactionID: txID,
			Amount:        value - swapFee,
			Unit:          token.Unit,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Infof("Wallet %s: received token for %d %s, tx %s", walletID, value-swapFee, token.Unit, txID)
	return txID, nil
}
