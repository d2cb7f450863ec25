package core

import (
	"context"
	"testing"

	"github.com/bitcr/pocketd/models"
)

func TestSendExactSelection(t *testing.T) {
	node, mock := newTestNode(t)
	wallet := newFundedWallet(t, node, mock, 64, 32, 4)

	summary, err := node.PrepareSend(wallet.ID, 36)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Fees.Total() != 0 {
		t.Errorf("Expected no fees for an exact feeless send, got %d", summary.Fees.Total())
	}

	txID, tokenString, err := node.Send(context.Background(), summary.RequestID, "coffee")
	if err != nil {
		t.Fatal(err)
	}

	token, err := models.ParseToken(tokenString)
	if err != nil {
		t.Fatal(err)
	}
	value, err := token.Value()
	if err != nil {
		t.Fatal(err)
	}
	if value != 36 {
		t.Errorf("Expected token value 36, got %d", value)
	}
	if token.Memo != "coffee" {
		t.Errorf("Expected memo coffee, got %s", token.Memo)
	}

	balances, err := node.Balance(wallet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balances.Debit != 64 {
		t.Errorf("Expected balance 64 after send, got %d", balances.Debit)
	}

	transaction, err := node.Ledger().Load(wallet.ID, txID)
	if err != nil {
		t.Fatal(err)
	}
	if transaction.Status != models.TxSettled || transaction.Direction != models.TxOut {
		t.Errorf("Unexpected transaction %s/%s", transaction.Status, transaction.Direction)
	}
}

func TestSendWithSwap(t *testing.T) {
	node, mock := newTestNode(t)
	wallet := newFundedWallet(t, node, mock, 64)

	summary, err := node.PrepareSend(wallet.ID, 30)
	if err != nil {
		t.Fatal(err)
	}

	_, tokenString, err := node.Send(context.Background(), summary.RequestID, "")
	if err != nil {
		t.Fatal(err)
	}

	token, err := models.ParseToken(tokenString)
	if err != nil {
		t.Fatal(err)
	}
	value, err := token.Value()
	if err != nil {
		t.Fatal(err)
	}
	if value != 30 {
		t.Errorf("Expected token value 30, got %d", value)
	}

	// The change from splitting the 64 proof stays behind.
	balances, err := node.Balance(wallet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balances.Debit != 34 {
		t.Errorf("Expected balance 34 after send, got %d", balances.Debit)
	}
}

func TestSendInsufficientFunds(t *testing.T) {
	node, mock := newTestNode(t)
	wallet := newFundedWallet(t, node, mock, 8)

	if _, err := node.PrepareSend(wallet.ID, 200); err != ErrInsufficientFunds {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := node.PrepareSend(wallet.ID, 0); err != ErrInvalidAmount {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
}

func TestReceiveToken(t *testing.T) {
	node, mock := newTestNode(t)
	sender := newFundedWallet(t, node, mock, 64, 32, 4)

	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := node.AddWallet("receiving", "http://mint.test", mnemonic, "sat", "csat")
	if err != nil {
		t.Fatal(err)
	}

	summary, err := node.PrepareSend(sender.ID, 36)
	if err != nil {
		t.Fatal(err)
	}
	_, tokenString, err := node.Send(context.Background(), summary.RequestID, "")
	if err != nil {
		t.Fatal(err)
	}

	txID, err := node.ReceiveToken(context.Background(), receiver.ID, tokenString)
	if err != nil {
		t.Fatal(err)
	}

	balances, err := node.Balance(receiver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balances.Debit != 36 {
		t.Errorf("Expected balance 36 after receive, got %d", balances.Debit)
	}

	transaction, err := node.Ledger().Load(receiver.ID, txID)
	if err != nil {
		t.Fatal(err)
	}
	if transaction.Status != models.TxSettled || transaction.Direction != models.TxIn {
		t.Errorf("Unexpected transaction %s/%s", transaction.Status, transaction.Direction)
	}

	// Replaying a claimed token must not change the balance.
	if _, err := node.ReceiveToken(context.Background(), receiver.ID, tokenString); err != ErrAlreadySpent {
		t.Errorf("Expected ErrAlreadySpent on replay, got %v", err)
	}
	balances, err = node.Balance(receiver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balances.Debit != 36 {
		t.Errorf("Expected balance unchanged at 36, got %d", balances.Debit)
	}
}

func TestReceiveTokenValidation(t *testing.T) {
	node, mock := newTestNode(t)
	wallet := newFundedWallet(t, node, mock)

	if _, err := node.ReceiveToken(context.Background(), wallet.ID, "garbage"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}

	foreign := &models.Token{
		MintURL: "http://other-mint.test",
		Unit:    "sat",
		Proofs:  []models.TokenProof{{Amount: 4, KeysetID: "x", Secret: "s", Signature: "c"}},
	}
	if _, err := node.ReceiveToken(context.Background(), wallet.ID, foreign.String()); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for foreign mint, got %v", err)
	}

	badUnit := &models.Token{
		MintURL: "http://mint.test",
		Unit:    "usd",
		Proofs:  []models.TokenProof{{Amount: 4, KeysetID: "x", Secret: "s", Signature: "c"}},
	}
	if _, err := node.ReceiveToken(context.Background(), wallet.ID, badUnit.String()); err != ErrUnsupportedUnit {
		t.Errorf("Expected ErrUnsupportedUnit, got %v", err)
	}
}
