package core

import (
	"context"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/ledger"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/models"
	"github.com/bitcr/pocketd/pocket"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// PaymentSummary is the quoted cost of paying a payment request. It is
// valid for a short window and consumed by the matching Pay call.
type PaymentSummary struct {
	RequestID string         `json:"requestID"`
	WalletID  string         `json:"walletID"`
	Amount    models.Amount  `json:"amount"`
	Unit      string         `json:"unit"`
	Fees      fees.Breakdown `json:"fees"`

	request string
}

// ReceiveStatus is the outcome of a bounded confirmation poll.
type ReceiveStatus string

const (
	// StatusSettled means the payment confirmed and its proofs were
	// claimed.
	StatusSettled ReceiveStatus = "settled"

	// StatusPending means the payment has not confirmed yet. Not an
	// error; callers re-poll.
	StatusPending ReceiveStatus = "pending"

	// StatusExpired means the underlying quote expired unpaid.
	StatusExpired ReceiveStatus = "expired"
)

// PreparePayment quotes the fees for paying the given payment request out
// of the wallet's debit balance. Nothing is reserved; the returned
// summary must be consumed by Pay before it expires.
func (n *PocketNode) PreparePayment(walletID, requestString string) (*PaymentSummary, error) {
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return nil, err
	}
	request, err := models.ParsePaymentRequest(requestString)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	if request.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if request.Unit != wallet.DebitUnit {
		return nil, ErrUnsupportedUnit
	}

	mc := n.dial(wallet.MintURL)
	keyset, err := n.activeKeyset(context.Background(), mc, walletID, wallet.DebitUnit)
	if err != nil {
		return nil, err
	}

	// Dry-run the selection so an underfunded wallet fails here rather
	// than after a quote round trip.
	var breakdown fees.Breakdown
	err = n.db.View(func(tx database.Tx) error {
		sel, err := n.store.SelectProofs(tx, walletID, request.Amount, wallet.DebitUnit)
		if err != nil {
			return err
		}
		breakdown, err = fees.ForMelt(request.Amount, len(sel.Proofs), feeSchedule(keyset))
		if err != nil {
			return err
		}
		_, err = n.store.SelectProofs(tx, walletID, request.Amount+breakdown.Total(), wallet.DebitUnit)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary := &PaymentSummary{
		RequestID: request.ID,
		WalletID:  walletID,
		Amount:    request.Amount,
		Unit:      request.Unit,
		Fees:      breakdown,
		request:   requestString,
	}
	n.summaries.Put(request.ID, walletID, "payment", summary)
	return summary, nil
}

// Pay executes a previously prepared payment: it reserves the proofs,
// melts them against the mint and settles the ledger entry. Any failure
// after the reservation rolls the proofs back before the error is
// returned; the caller never observes a reserved-but-unresolved set.
func (n *PocketNode) Pay(ctx context.Context, requestID string) (string, error) {
	cached, err := n.summaries.Take(requestID)
	if err != nil {
		return "", err
	}
	summary, ok := cached.(*PaymentSummary)
	if !ok {
		return "", ErrStaleRequest
	}

	defer n.lockWallet(summary.WalletID)()

	wallet, err := n.WalletByID(summary.WalletID)
	if err != nil {
		return "", err
	}
	mc := n.dial(wallet.MintURL)
	keyset, err := n.activeKeyset(ctx, mc, wallet.ID, summary.Unit)
	if err != nil {
		return "", err
	}

	quote, err := mc.MeltQuote(ctx, summary.request, summary.Unit)
	if err != nil {
		return "", err
	}

	reservationID := uuid.New().String()
	var (
		txID     string
		reserved *pocket.Selection
	)
	err = n.db.Update(func(tx database.Tx) error {
		txID, err = n.ledger.Begin(tx, wallet.ID, models.TxOut, summary.Amount, summary.Unit, summary.request)
		if err != nil {
			return err
		}
		reserved, err = n.store.SelectProofs(tx, wallet.ID, summary.Amount+summary.Fees.Total(), summary.Unit)
		if err != nil {
			return err
		}
		if err := n.store.Reserve(tx, reservationID, reserved.Proofs); err != nil {
			return err
		}
		return tx.Save(&models.PendingQuote{
			QuoteID:  quote.QuoteID,
			WalletID: wallet.ID,
			Kind:     models.QuoteMelt,
			Amount:   summary.Amount,
			Unit:     summary.Unit,
			State:    string(quote.State),
			TxID:     txID,
			Expiry:   quote.Expiry,
		})
	})
	if err != nil {
		return "", err
	}

	// When the selection overshoots the target, split the designated swap
	// proof at the mint for exact change first; melting the raw selection
	// would hand the overshoot to the mint as fees.
	target := summary.Amount + summary.Fees.Total()
	meltInputs := reserved.Proofs
	var change []models.Proof
	if reserved.NeedsSwap(target) {
		swapProof := reserved.SwapProof()
		carried := reserved.Total - swapProof.Amount
		needed := target - carried
		swapFee := fees.InputFee(1, feeSchedule(keyset))
		if swapProof.Amount < needed+swapFee {
			n.abortPayment(wallet.ID, reservationID, txID, quote.QuoteID, ErrInsufficientFunds)
			return "", ErrInsufficientFunds
		}
		changeAmt := swapProof.Amount - needed - swapFee

		outputs, err := n.store.OutputsFor(wallet, keyset.ID, needed, changeAmt)
		if err != nil {
			n.abortPayment(wallet.ID, reservationID, txID, quote.QuoteID, err)
			return "", err
		}
		swapped, err := mc.Swap(ctx, []mint.Proof{pocket.ToWire(swapProof)}, outputs)
		if err != nil || len(swapped) != len(outputs) {
			n.abortPayment(wallet.ID, reservationID, txID, quote.QuoteID, err)
			if err == nil {
				err = &mint.Error{Op: "swap", Reason: "output count mismatch"}
			}
			return "", err
		}
		nNeeded := len(needed.Split())
		exact := pocket.FromWireAll(wallet.ID, summary.Unit, swapped[:nNeeded])
		change = pocket.FromWireAll(wallet.ID, summary.Unit, swapped[nNeeded:])

		// The swap consumed the designated proof at the mint. Replace it
		// in the reservation with the exact remainder; the change is
		// spendable immediately.
		err = n.db.Update(func(tx database.Tx) error {
			if err := n.store.MarkSpent(tx, []string{swapProof.ID}); err != nil {
				return err
			}
			for i := range exact {
				exact[i].Status = models.ProofPending
				exact[i].ReservationID = reservationID
				if err := tx.Save(&exact[i]); err != nil {
					return err
				}
			}
			for i := range change {
				if err := tx.Save(&change[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		meltInputs = append(reserved.Proofs[:len(reserved.Proofs)-1:len(reserved.Proofs)-1], exact...)
	}

	result, err := mc.Melt(ctx, quote.QuoteID, pocket.ToWireAll(meltInputs))
	if err != nil || result.State != mint.QuotePaid {
		n.abortPayment(wallet.ID, reservationID, txID, quote.QuoteID, err)
		if err == nil {
			err = &mint.Error{Op: "melt", Reason: "quote not paid: " + string(result.State)}
		}
		return "", err
	}

	change = append(change, pocket.FromWireAll(wallet.ID, summary.Unit, result.Change)...)
	paid := reserved.Total - summary.Amount - models.SumProofs(change)

	err = n.db.Update(func(tx database.Tx) error {
		if err := n.store.Commit(tx, reservationID, change); err != nil {
			return err
		}
		if err := n.ledger.Settle(tx, txID, paid, reserved.IDs()); err != nil {
			return err
		}
		if err := tx.Delete("quote_id", quote.QuoteID, nil, &models.PendingQuote{}); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.PaymentSentNotification{
			WalletID:      wallet.ID,
			TransactionID: txID,
			Amount:        summary.Amount,
			Unit:          summary.Unit,
			Fees:          paid,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Infof("Wallet %s: paid %d %s (fees %d), tx %s", wallet.ID, summary.Amount, summary.Unit, paid, txID)
	return txID, nil
}

// abortPayment unwinds a failed payment attempt: proofs back to
// available, ledger entry failed, pending quote dropped.
func (n *PocketNode) abortPayment(walletID, reservationID, txID, quoteID string, cause error) {
	reason := "melt did not complete"
	if cause != nil {
		reason = cause.Error()
	}
	err := n.db.Update(func(tx database.Tx) error {
		if err := n.store.Rollback(tx, reservationID); err != nil {
			return err
		}
		if err := n.ledger.Fail(tx, txID, reason); err != nil && err != ledger.ErrNotFound {
			return err
		}
		return tx.Delete("quote_id", quoteID, nil, &models.PendingQuote{})
	})
	if err != nil {
		log.Errorf("Wallet %s: rollback of payment %s failed: %s", walletID, txID, err)
	}
}

// PreparePaymentRequest creates an inbound payment request for the given
// amount: the encodable descriptor handed to the payer and a pending id
// to poll with. No proofs are touched.
func (n *PocketNode) PreparePaymentRequest(ctx context.Context, walletID string, amount models.Amount, memo, description string) (*models.PaymentRequest, string, error) {
	if amount == 0 {
		return nil, "", ErrInvalidAmount
	}
	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return nil, "", err
	}

	mc := n.dial(wallet.MintURL)
	quote, err := mc.RequestMintQuote(ctx, amount, wallet.DebitUnit)
	if err != nil {
		return nil, "", err
	}

	err = n.db.Update(func(tx database.Tx) error {
		txID, err := n.ledger.Begin(tx, wallet.ID, models.TxIn, amount, wallet.DebitUnit, memo)
		if err != nil {
			return err
		}
		return tx.Save(&models.PendingQuote{
			QuoteID:  quote.QuoteID,
			WalletID: wallet.ID,
			Kind:     models.QuoteMint,
			Amount:   amount,
			Unit:     wallet.DebitUnit,
			State:    string(quote.State),
			TxID:     txID,
			Expiry:   quote.Expiry,
		})
	})
	if err != nil {
		return nil, "", err
	}

	request := &models.PaymentRequest{
		ID:          quote.QuoteID,
		Amount:      amount,
		Unit:        wallet.DebitUnit,
		MintURL:     wallet.MintURL,
		Memo:        memo,
		Description: description,
	}
	return request, quote.QuoteID, nil
}

// CheckReceivedPayment polls the mint for settlement of a pending inbound
// payment. The poll is bounded; if the quote is still unpaid when the
// bound is reached the call resolves to StatusPending with no side
// effects and may be safely repeated. Network failures surface as errors,
// distinct from a plain not-yet-settled result.
func (n *PocketNode) CheckReceivedPayment(ctx context.Context, pendingID string, pollInterval time.Duration) (ReceiveStatus, string, error) {
	var pending models.PendingQuote
	err := n.db.View(func(tx database.Tx) error {
		err := tx.Read().Where("quote_id = ? AND kind = ?", pendingID, models.QuoteMint).First(&pending).Error
		if gorm.IsRecordNotFoundError(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return "", "", err
	}
	wallet, err := n.WalletByID(pending.WalletID)
	if err != nil {
		return "", "", err
	}
	mc := n.dial(wallet.MintURL)

	for poll := 0; poll < confirmationPolls; poll++ {
		quote, err := mc.MintQuoteState(ctx, pendingID)
		if err != nil {
			return "", "", err
		}

		switch quote.State {
		case mint.QuotePaid:
			txID, err := n.claimMintQuote(ctx, mc, wallet, &pending)
			if err != nil {
				return "", "", err
			}
			return StatusSettled, txID, nil

		case mint.QuoteIssued:
			// Already claimed by an earlier poll that didn't get to
			// report back. The ledger entry is authoritative.
			return StatusSettled, pending.TxID, nil

		case mint.QuoteExpired:
			err := n.db.Update(func(tx database.Tx) error {
				if err := n.ledger.Fail(tx, pending.TxID, "payment request expired"); err != nil && err != ledger.ErrNotFound {
					return err
				}
				return tx.Delete("quote_id", pendingID, nil, &models.PendingQuote{})
			})
			if err != nil {
				return "", "", err
			}
			return StatusExpired, "", nil
		}

		select {
		case <-ctx.Done():
			return StatusPending, "", nil
		case <-time.After(pollInterval):
		}
	}
	return StatusPending, "", nil
}

// claimMintQuote turns a paid mint quote into stored proofs and settles
// the correlated ledger entry.
func (n *PocketNode) claimMintQuote(ctx context.Context, mc mint.Connector, wallet *models.Wallet, pending *models.PendingQuote) (string, error) {
	defer n.lockWallet(wallet.ID)()

	keyset, err := n.activeKeyset(ctx, mc, wallet.ID, pending.Unit)
	if err != nil {
		return "", err
	}
	outputs, err := n.store.OutputsFor(wallet, keyset.ID, pending.Amount)
	if err != nil {
		return "", err
	}
	proofs, err := mc.MintProofs(ctx, pending.QuoteID, outputs)
	if err != nil {
		return "", err
	}

	stored := pocket.FromWireAll(wallet.ID, pending.Unit, proofs)
	err = n.db.Update(func(tx database.Tx) error {
		ids := make([]string, len(stored))
		for i, p := range stored {
			if err := tx.Save(&p); err != nil {
				return err
			}
			ids[i] = p.ID
		}
		if err := n.ledger.Settle(tx, pending.TxID, 0, ids); err != nil && err != ledger.ErrNotFound {
			return err
		}
		if err := tx.Delete("quote_id", pending.QuoteID, nil, &models.PendingQuote{}); err != nil {
			return err
		}
		n.notifyOnCommit(tx, &events.PaymentReceivedNotification{
			WalletID:      wallet.ID,
			TransactionID: pending.TxID,
			Amount:        pending.Amount,
			Unit:          pending.Unit,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Infof("Wallet %s: received payment of %d %s, tx %s", wallet.ID, pending.Amount, pending.Unit, pending.TxID)
	return pending.TxID, nil
}

// ReclaimFunds resolves state left behind by interrupted operations:
// proofs stuck in a reservation past the staleness threshold are
// re-checked against the mint and either released back to available or
// marked spent, and expired pending quotes have their ledger entries
// failed. Idempotent and safe to call at any time, including on startup.
func (n *PocketNode) ReclaimFunds(ctx context.Context, walletID string) (models.Amount, error) {
	defer n.lockWallet(walletID)()

	wallet, err := n.WalletByID(walletID)
	if err != nil {
		return 0, err
	}
	mc := n.dial(wallet.MintURL)

	var stale []models.Proof
	err = n.db.View(func(tx database.Tx) error {
		var err error
		stale, err = n.store.Stale(tx, walletID, time.Now().Add(-n.reclaimThreshold))
		return err
	})
	if err != nil {
		return 0, err
	}

	var (
		recovered models.Amount
		spentAmt  models.Amount
	)
	if len(stale) > 0 {
		secrets := make([]string, len(stale))
		for i, p := range stale {
			secrets[i] = p.Secret
		}
		states, err := mc.CheckProofStates(ctx, secrets)
		if err != nil {
			return 0, err
		}

		var release, spent []string
		for i, p := range stale {
			if states[i] == mint.ProofStateSpent {
				spent = append(spent, p.ID)
				spentAmt += p.Amount
			} else {
				release = append(release, p.ID)
				recovered += p.Amount
			}
		}
		err = n.db.Update(func(tx database.Tx) error {
			if err := n.store.Release(tx, release); err != nil {
				return err
			}
			if err := n.store.MarkSpent(tx, spent); err != nil {
				return err
			}
			n.notifyOnCommit(tx, &events.FundsReclaimedNotification{
				WalletID:  walletID,
				Recovered: recovered,
				Spent:     spentAmt,
			})
			return nil
		})
		if err != nil {
			return 0, err
		}
		log.Infof("Wallet %s: reclaimed %d stale proofs (%d recovered, %d confirmed spent)",
			walletID, len(stale), recovered, spentAmt)
	}

	// Expired quotes can never settle, with one exception: a melt that
	// reached the mint before the crash may have settled there despite the
	// stored expiry. Ask the mint before failing those.
	var expired []models.PendingQuote
	err = n.db.View(func(tx database.Tx) error {
		err := tx.Read().
			Where("wallet_id = ? AND expiry < ?", walletID, time.Now().Unix()).
			Find(&expired).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, q := range expired {
		settled := false
		if q.Kind == models.QuoteMelt {
			quote, err := mc.MeltQuoteState(ctx, q.QuoteID)
			if err != nil {
				// Leave it for the next sweep.
				log.Warningf("Wallet %s: could not check melt quote %s: %s", walletID, q.QuoteID, err)
				continue
			}
			settled = quote.State == mint.QuotePaid
		}
		q := q
		err = n.db.Update(func(tx database.Tx) error {
			if settled {
				if err := n.ledger.Settle(tx, q.TxID, 0, nil); err != nil && err != ledger.ErrNotFound && err != ledger.ErrTerminal {
					return err
				}
			} else if err := n.ledger.Fail(tx, q.TxID, "quote expired"); err != nil && err != ledger.ErrNotFound && err != ledger.ErrTerminal {
				return err
			}
			return tx.Delete("quote_id", q.QuoteID, nil, &models.PendingQuote{})
		})
		if err != nil {
			return 0, err
		}
	}

	return recovered, nil
}
