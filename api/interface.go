package api

import (
	"context"
	"time"

	"github.com/bitcr/pocketd/core"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/ledger"
	"github.com/bitcr/pocketd/models"
)

// CoreIface is the node surface the gateway depends on. Handlers are
// tested against a mock implementation of this interface.
type CoreIface interface {
	AddWallet(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error)
	RestoreWallet(ctx context.Context, name, mintURL, mnemonic string) (*models.Wallet, error)
	ListWallets() ([]models.Wallet, error)
	WalletByID(id string) (*models.Wallet, error)
	RemoveWallet(walletID string) error
	Balance(walletID string) (*core.Balances, error)

	PreparePayment(walletID, requestString string) (*core.PaymentSummary, error)
	Pay(ctx context.Context, requestID string) (string, error)
	PreparePaymentRequest(ctx context.Context, walletID string, amount models.Amount, memo, description string) (*models.PaymentRequest, string, error)
	CheckReceivedPayment(ctx context.Context, pendingID string, pollInterval time.Duration) (core.ReceiveStatus, string, error)

	PrepareSend(walletID string, amount models.Amount) (*core.SendSummary, error)
	Send(ctx context.Context, requestID, memo string) (string, string, error)
	ReceiveToken(ctx context.Context, walletID, tokenString string) (string, error)

	ListRedemptions(walletID string, horizonSecs int64) ([]core.RedemptionEntry, error)
	RedeemCredit(ctx context.Context, walletID string) (models.Amount, error)

	ReclaimFunds(ctx context.Context, walletID string) (models.Amount, error)
	CleanLocalDB(ctx context.Context, walletID string) (int, error)

	Ledger() *ledger.Ledger
	SubscribeEvent(event interface{}) (events.Subscription, error)
}
