package events

import (
	"github.com/bitcr/pocketd/models"
)

// TypedNotification contains a single method which allows
// us to get the type of the notification. All notifications
// should implement this.
type TypedNotification interface {
	// Type returns the type of the notification.
	Type() string
}

// WalletAddedNotification fires when a wallet is created or restored.
type WalletAddedNotification struct {
	WalletID string `json:"walletID"`
	Name     string `json:"name"`
	Restored bool   `json:"restored"`
}

func (n *WalletAddedNotification) Type() string { return "WalletAddedNotification" }

// PaymentSentNotification fires when an outbound payment settles against
// the mint.
type PaymentSentNotification struct {
	WalletID      string        `json:"walletID"`
	TransactionID string        `json:"transactionID"`
	Amount        models.Amount `json:"amount"`
	Unit          string        `json:"unit"`
	Fees          models.Amount `json:"fees"`
}

func (n *PaymentSentNotification) Type() string { return "PaymentSentNotification" }

// PaymentReceivedNotification fires when an awaited inbound payment is
// confirmed and its proofs are claimed.
type PaymentReceivedNotification struct {
	WalletID      string        `json:"walletID"`
	TransactionID string        `json:"transactionID"`
	Amount        models.Amount `json:"amount"`
	Unit          string        `json:"unit"`
}

func (n *PaymentReceivedNotification) Type() string { return "PaymentReceivedNotification" }

// TokenSentNotification fires when an offline token is produced by a send.
type TokenSentNotification struct {
	WalletID      string        `json:"walletID"`
	TransactionID string        `json:"transactionID"`
	Amount        models.Amount `json:"amount"`
	Unit          string        `json:"unit"`
}

func (n *TokenSentNotification) Type() string { return "TokenSentNotification" }

// TokenReceivedNotification fires when an offline token is claimed into
// the wallet.
type TokenReceivedNotification struct {
	WalletID      string        `json:"walletID"`
	TransactionID string        `json:"transactionID"`
	Amount        models.Amount `json:"amount"`
	Unit          string        `json:"unit"`
}

func (n *TokenReceivedNotification) Type() string { return "TokenReceivedNotification" }

// CreditRedeemedNotification fires when matured credit is converted into
// spendable debit proofs.
type CreditRedeemedNotification struct {
	WalletID      string        `json:"walletID"`
	TransactionID string        `json:"transactionID"`
	Amount        models.Amount `json:"amount"`
}

func (n *CreditRedeemedNotification) Type() string { return "CreditRedeemedNotification" }

// FundsReclaimedNotification fires when the recovery sweep resolves proofs
// left reserved by an interrupted operation.
type FundsReclaimedNotification struct {
	WalletID  string        `json:"walletID"`
	Recovered models.Amount `json:"recovered"`
	Spent     models.Amount `json:"spent"`
}

func (n *FundsReclaimedNotification) Type() string { return "FundsReclaimedNotification" }
