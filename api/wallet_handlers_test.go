package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bitcr/pocketd/core"
	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/models"
)

func expectJSON(i interface{}) func() ([]byte, error) {
	return func() ([]byte, error) {
		return json.MarshalIndent(i, "", "    ")
	}
}

func expectError(err error) func() ([]byte, error) {
	return func() ([]byte, error) {
		return []byte(wrapError(err) + "\n"), nil
	}
}

func TestWalletHandlers(t *testing.T) {
	runAPITests(t, apiTests{
		{
			name:   "Create wallet",
			path:   "/v1/wallet",
			method: http.MethodPost,
			body:   []byte(`{"name": "spending", "mintUrl": "http://mint.test", "mnemonic": "abandon abandon about", "debitUnit": "sat", "creditUnit": "csat"}`),
			setNodeMethods: func(n *mockNode) {
				n.addWalletFunc = func(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error) {
					return &models.Wallet{
						ID:         "wallet1",
						Name:       name,
						MintURL:    mintURL,
						DebitUnit:  debitUnit,
						CreditUnit: creditUnit,
					}, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(walletResponse{
				ID:         "wallet1",
				Name:       "spending",
				MintURL:    "http://mint.test",
				DebitUnit:  "sat",
				CreditUnit: "csat",
			}),
		},
		{
			name:   "Create wallet duplicate name",
			path:   "/v1/wallet",
			method: http.MethodPost,
			body:   []byte(`{"name": "spending"}`),
			setNodeMethods: func(n *mockNode) {
				n.addWalletFunc = func(name, mintURL, mnemonic, debitUnit, creditUnit string) (*models.Wallet, error) {
					return nil, core.ErrWalletExists
				}
			},
			statusCode:       http.StatusConflict,
			expectedResponse: expectError(core.ErrWalletExists),
		},
		{
			name:   "Get balance",
			path:   "/v1/wallet/wallet1/balance",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.balanceFunc = func(walletID string) (*core.Balances, error) {
					return &core.Balances{Debit: 100, DebitUnit: "sat", Credit: 25, CreditUnit: "csat"}, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(core.Balances{
				Debit:      100,
				DebitUnit:  "sat",
				Credit:     25,
				CreditUnit: "csat",
			}),
		},
		{
			name:   "Get balance unknown wallet",
			path:   "/v1/wallet/nope/balance",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.balanceFunc = func(walletID string) (*core.Balances, error) {
					return nil, core.ErrNotFound
				}
			},
			statusCode:       http.StatusNotFound,
			expectedResponse: expectError(core.ErrNotFound),
		},
		{
			name:   "Prepare send",
			path:   "/v1/wallet/wallet1/preparesend",
			method: http.MethodPost,
			body:   []byte(`{"amount": 30}`),
			setNodeMethods: func(n *mockNode) {
				n.prepareSendFunc = func(walletID string, amount models.Amount) (*core.SendSummary, error) {
					return &core.SendSummary{
						RequestID: "req1",
						WalletID:  walletID,
						Amount:    amount,
						Unit:      "sat",
						Fees:      fees.Breakdown{Base: 1},
					}, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(core.SendSummary{
				RequestID: "req1",
				WalletID:  "wallet1",
				Amount:    30,
				Unit:      "sat",
				Fees:      fees.Breakdown{Base: 1},
			}),
		},
		{
			name:   "Prepare send insufficient funds",
			path:   "/v1/wallet/wallet1/preparesend",
			method: http.MethodPost,
			body:   []byte(`{"amount": 500}`),
			setNodeMethods: func(n *mockNode) {
				n.prepareSendFunc = func(walletID string, amount models.Amount) (*core.SendSummary, error) {
					return nil, core.ErrInsufficientFunds
				}
			},
			statusCode:       http.StatusPaymentRequired,
			expectedResponse: expectError(core.ErrInsufficientFunds),
		},
		{
			name:   "Send",
			path:   "/v1/wallet/wallet1/send",
			method: http.MethodPost,
			body:   []byte(`{"requestID": "req1", "memo": "coffee"}`),
			setNodeMethods: func(n *mockNode) {
				n.sendFunc = func(ctx context.Context, requestID, memo string) (string, string, error) {
					return "tx1", "bitcrAdeadbeef", nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(struct {
				TransactionID string `json:"transactionID"`
				Token         string `json:"token"`
			}{TransactionID: "tx1", Token: "bitcrAdeadbeef"}),
		},
		{
			name:   "Receive spent token",
			path:   "/v1/wallet/wallet1/receive",
			method: http.MethodPost,
			body:   []byte(`{"token": "bitcrAdeadbeef"}`),
			setNodeMethods: func(n *mockNode) {
				n.receiveTokenFunc = func(ctx context.Context, walletID, tokenString string) (string, error) {
					return "", core.ErrAlreadySpent
				}
			},
			statusCode:       http.StatusBadRequest,
			expectedResponse: expectError(core.ErrAlreadySpent),
		},
		{
			name:   "List redemptions empty",
			path:   "/v1/wallet/wallet1/redemptions",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.listRedemptionsFunc = func(walletID string, horizonSecs int64) ([]core.RedemptionEntry, error) {
					return nil, nil
				}
			},
			statusCode:       http.StatusOK,
			expectedResponse: expectJSON([]core.RedemptionEntry{}),
		},
		{
			name:   "Redeem",
			path:   "/v1/wallet/wallet1/redeem",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.redeemCreditFunc = func(ctx context.Context, walletID string) (models.Amount, error) {
					return 40, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(struct {
				Redeemed models.Amount `json:"redeemed"`
			}{Redeemed: 40}),
		},
		{
			name:   "Reclaim",
			path:   "/v1/wallet/wallet1/reclaim",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.reclaimFundsFunc = func(ctx context.Context, walletID string) (models.Amount, error) {
					return 32, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(struct {
				Recovered models.Amount `json:"recovered"`
			}{Recovered: 32}),
		},
		{
			name:   "Check payment settled",
			path:   "/v1/wallet/wallet1/checkpayment/quote1",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.checkReceivedPaymentFunc = func(ctx context.Context, pendingID string, pollInterval time.Duration) (core.ReceiveStatus, string, error) {
					return core.StatusSettled, "tx2", nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: expectJSON(struct {
				Status        core.ReceiveStatus `json:"status"`
				TransactionID string             `json:"transactionID,omitempty"`
			}{Status: core.StatusSettled, TransactionID: "tx2"}),
		},
	})
}
