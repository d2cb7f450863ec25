package api

import (
	"context"
	"time"

	"github.com/bitcr/pocketd/core"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/ledger"
	"github.com/bitcr/pocketd/models"
)

type mockNode struct {
	addWalletFunc             func(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error)
	restoreWalletFunc         func(ctx context.Context, name, mintURL, mnemonic string) (*models.Wallet, error)
	listWalletsFunc           func() ([]models.Wallet, error)
	walletByIDFunc            func(id string) (*models.Wallet, error)
	removeWalletFunc          func(walletID string) error
	balanceFunc               func(walletID string) (*core.Balances, error)
	preparePaymentFunc        func(walletID, requestString string) (*core.PaymentSummary, error)
	payFunc                   func(ctx context.Context, requestID string) (string, error)
	preparePaymentRequestFunc func(ctx context.Context, walletID string, amount models.Amount, memo, description string) (*models.PaymentRequest, string, error)
	checkReceivedPaymentFunc  func(ctx context.Context, pendingID string, pollInterval time.Duration) (core.ReceiveStatus, string, error)
	prepareSendFunc           func(walletID string, amount models.Amount) (*core.SendSummary, error)
	sendFunc                  func(ctx context.Context, requestID, memo string) (string, string, error)
	receiveTokenFunc          func(ctx context.Context, walletID, tokenString string) (string, error)
	listRedemptionsFunc       func(walletID string, horizonSecs int64) ([]core.RedemptionEntry, error)
	redeemCreditFunc          func(ctx context.Context, walletID string) (models.Amount, error)
	reclaimFundsFunc          func(ctx context.Context, walletID string) (models.Amount, error)
	cleanLocalDBFunc          func(ctx context.Context, walletID string) (int, error)
	ledgerFunc                func() *ledger.Ledger
	subscribeEventFunc        func(event interface{}) (events.Subscription, error)
}

func (m *mockNode) AddWallet(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error) {
	return m.addWalletFunc(name, mintURL, mnemonic, debitUnit, creditUnit)
}

func (m *mockNode) RestoreWallet(ctx context.Context, name, mintURL, mnemonic string) (*models.Wallet, error) {
	return m.restoreWalletFunc(ctx, name, mintURL, mnemonic)
}

func (m *mockNode) ListWallets() ([]models.Wallet, error) {
	return m.listWalletsFunc()
}

func (m *mockNode) WalletByID(id string) (*models.Wallet, error) {
	return m.walletByIDFunc(id)
}

func (m *mockNode) RemoveWallet(walletID string) error {
	return m.removeWalletFunc(walletID)
}

func (m *mockNode) Balance(walletID string) (*core.Balances, error) {
	return m.balanceFunc(walletID)
}

func (m *mockNode) PreparePayment(walletID, requestString string) (*core.PaymentSummary, error) {
	return m.preparePaymentFunc(walletID, requestString)
}

func (m *mockNode) Pay(ctx context.Context, requestID string) (string, error) {
	return m.payFunc(ctx, requestID)
}

func (m *mockNode) PreparePaymentRequest(ctx context.Context, walletID string, amount models.Amount, memo, description string) (*models.PaymentRequest, string, error) {
	return m.preparePaymentRequestFunc(ctx, walletID, amount, memo, description)
}

func (m *mockNode) CheckReceivedPayment(ctx context.Context, pendingID string, pollInterval time.Duration) (core.ReceiveStatus, string, error) {
	return m.checkReceivedPaymentFunc(ctx, pendingID, pollInterval)
}

func (m *mockNode) PrepareSend(walletID string, amount models.Amount) (*core.SendSummary, error) {
	return m.prepareSendFunc(walletID, amount)
}

func (m *mockNode) Send(ctx context.Context, requestID, memo string) (string, string, error) {
	return m.sendFunc(ctx, requestID, memo)
}

func (m *mockNode) ReceiveToken(ctx context.Context, walletID, tokenString string) (string, error) {
	return m.receiveTokenFunc(ctx, walletID, tokenString)
}

func (m *mockNode) ListRedemptions(walletID string, horizonSecs int64) ([]core.RedemptionEntry, error) {
	return m.listRedemptionsFunc(walletID, horizonSecs)
}

func (m *mockNode) RedeemCredit(ctx context.Context, walletID string) (models.Amount, error) {
	return m.redeemCreditFunc(ctx, walletID)
}

func (m *mockNode) ReclaimFunds(ctx context.Context, walletID string) (models.Amount, error) {
	return m.reclaimFundsFunc(ctx, walletID)
}

func (m *mockNode) CleanLocalDB(ctx context.Context, walletID string) (int, error) {
	return m.cleanLocalDBFunc(ctx, walletID)
}

func (m *mockNode) Ledger() *ledger.Ledger {
	return m.ledgerFunc()
}

func (m *mockNode) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return m.subscribeEventFunc(event)
}
