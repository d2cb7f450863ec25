package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bitcr/pocketd/core"
	"github.com/bitcr/pocketd/models"
	"github.com/gorilla/mux"
)

const checkPaymentPollInterval = time.Second * 2

func wrapError(err error) string {
	out, jerr := json.MarshalIndent(struct {
		Error string `json:"error"`
	}{Error: err.Error()}, "", "    ")
	if jerr != nil {
		return err.Error()
	}
	return string(out)
}

func jsonResponse(w http.ResponseWriter, i interface{}) {
	out, err := json.MarshalIndent(i, "", "    ")
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, string(out))
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch err {
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	case core.ErrProofLocked, core.ErrWalletExists:
		return http.StatusConflict
	case core.ErrInvalidAmount, core.ErrInvalidRequest, core.ErrInvalidToken,
		core.ErrInvalidMnemonic, core.ErrUnsupportedUnit, core.ErrAlreadySpent,
		core.ErrStaleRequest:
		return http.StatusBadRequest
	case core.ErrMintUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type walletResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MintURL    string `json:"mintUrl"`
	DebitUnit  string `json:"debitUnit"`
	CreditUnit string `json:"creditUnit"`
}

func newWalletResponse(wallet *models.Wallet) walletResponse {
	return walletResponse{
		ID:         wallet.ID,
		Name:       wallet.Name,
		MintURL:    wallet.MintURL,
		DebitUnit:  wallet.DebitUnit,
		CreditUnit: wallet.CreditUnit,
	}
}

func (g *Gateway) handlePOSTWallet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		MintURL    string `json:"mintUrl"`
		Mnemonic   string `json:"mnemonic"`
		DebitUnit  string `json:"debitUnit"`
		CreditUnit string `json:"creditUnit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	wallet, err := g.node.AddWallet(body.Name, body.MintURL, body.Mnemonic, body.DebitUnit, body.CreditUnit)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, newWalletResponse(wallet))
}

func (g *Gateway) handlePOSTRestoreWallet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		MintURL  string `json:"mintUrl"`
		Mnemonic string `json:"mnemonic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	wallet, err := g.node.RestoreWallet(r.Context(), body.Name, body.MintURL, body.Mnemonic)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, newWalletResponse(wallet))
}

func (g *Gateway) handleGETNewMnemonic(w http.ResponseWriter, r *http.Request) {
	mnemonic, err := core.NewMnemonic()
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, struct {
		Mnemonic string `json:"mnemonic"`
	}{Mnemonic: mnemonic})
}

func (g *Gateway) handleGETWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := g.node.ListWallets()
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	ret := make([]walletResponse, 0, len(wallets))
	for i := range wallets {
		ret = append(ret, newWalletResponse(&wallets[i]))
	}
	jsonResponse(w, ret)
}

func (g *Gateway) handleGETWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := g.node.WalletByID(mux.Vars(r)["walletID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, newWalletResponse(wallet))
}

func (g *Gateway) handleDELETEWallet(w http.ResponseWriter, r *http.Request) {
	if err := g.node.RemoveWallet(mux.Vars(r)["walletID"]); err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) handleGETBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := g.node.Balance(mux.Vars(r)["walletID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, balances)
}

func (g *Gateway) handlePOSTPreparePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Request string `json:"request"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	summary, err := g.node.PreparePayment(mux.Vars(r)["walletID"], body.Request)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, summary)
}

func (g *Gateway) handlePOSTPay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	txID, err := g.node.Pay(r.Context(), body.RequestID)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		TransactionID string `json:"transactionID"`
	}{TransactionID: txID})
}

func (g *Gateway) handlePOSTPaymentRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount      models.Amount `json:"amount"`
		Memo        string        `json:"memo"`
		Description string        `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	request, pendingID, err := g.node.PreparePaymentRequest(r.Context(), mux.Vars(r)["walletID"], body.Amount, body.Memo, body.Description)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}

	// The QR code is best effort; text form is authoritative.
	var qr string
	if png, err := request.QRCode(); err == nil {
		qr = base64.StdEncoding.EncodeToString(png)
	}
	jsonResponse(w, struct {
		Request   string `json:"request"`
		PendingID string `json:"pendingID"`
		QRCode    string `json:"qrcode,omitempty"`
	}{Request: request.String(), PendingID: pendingID, QRCode: qr})
}

func (g *Gateway) handleGETCheckPayment(w http.ResponseWriter, r *http.Request) {
	status, txID, err := g.node.CheckReceivedPayment(r.Context(), mux.Vars(r)["pendingID"], checkPaymentPollInterval)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		Status        core.ReceiveStatus `json:"status"`
		TransactionID string             `json:"transactionID,omitempty"`
	}{Status: status, TransactionID: txID})
}

func (g *Gateway) handlePOSTPrepareSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount models.Amount `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	summary, err := g.node.PrepareSend(mux.Vars(r)["walletID"], body.Amount)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, summary)
}

func (g *Gateway) handlePOSTSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestID"`
		Memo      string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	txID, token, err := g.node.Send(r.Context(), body.RequestID, body.Memo)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		TransactionID string `json:"transactionID"`
		Token         string `json:"token"`
	}{TransactionID: txID, Token: token})
}

func (g *Gateway) handlePOSTReceiveToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	txID, err := g.node.ReceiveToken(r.Context(), mux.Vars(r)["walletID"], body.Token)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		TransactionID string `json:"transactionID"`
	}{TransactionID: txID})
}

func (g *Gateway) handleGETRedemptions(w http.ResponseWriter, r *http.Request) {
	horizon := int64(60 * 60 * 24 * 30)
	if hs := r.URL.Query().Get("horizon"); hs != "" {
		parsed, err := strconv.ParseInt(hs, 10, 64)
		if err != nil {
			http.Error(w, wrapError(err), http.StatusBadRequest)
			return
		}
		horizon = parsed
	}
	entries, err := g.node.ListRedemptions(mux.Vars(r)["walletID"], horizon)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	if entries == nil {
		entries = []core.RedemptionEntry{}
	}
	jsonResponse(w, entries)
}

func (g *Gateway) handlePOSTRedeem(w http.ResponseWriter, r *http.Request) {
	redeemed, err := g.node.RedeemCredit(r.Context(), mux.Vars(r)["walletID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		Redeemed models.Amount `json:"redeemed"`
	}{Redeemed: redeemed})
}

type transactionResponse struct {
	ID        string            `json:"id"`
	Direction models.TxDirection `json:"direction"`
	Amount    models.Amount     `json:"amount"`
	Unit      string            `json:"unit"`
	Fees      models.Amount     `json:"fees"`
	Status    models.TxStatus   `json:"status"`
	Memo      string            `json:"memo"`
	Timestamp time.Time         `json:"timestamp"`
}

func newTransactionResponse(t *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		Direction: t.Direction,
		Amount:    t.Amount,
		Unit:      t.Unit,
		Fees:      t.Fees,
		Status:    t.Status,
		Memo:      t.Memo,
		Timestamp: t.Timestamp,
	}
}

func (g *Gateway) handleGETTransactions(w http.ResponseWriter, r *http.Request) {
	walletID := mux.Vars(r)["walletID"]
	ids, err := g.node.Ledger().ListIDs(walletID)
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	ret := make([]transactionResponse, 0, len(ids))
	for _, id := range ids {
		transaction, err := g.node.Ledger().Load(walletID, id)
		if err != nil {
			http.Error(w, wrapError(err), statusForError(err))
			return
		}
		ret = append(ret, newTransactionResponse(transaction))
	}
	jsonResponse(w, ret)
}

func (g *Gateway) handleGETTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := g.node.Ledger().Load(mux.Vars(r)["walletID"], mux.Vars(r)["transactionID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, newTransactionResponse(transaction))
}

func (g *Gateway) handlePOSTReclaim(w http.ResponseWriter, r *http.Request) {
	recovered, err := g.node.ReclaimFunds(r.Context(), mux.Vars(r)["walletID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		Recovered models.Amount `json:"recovered"`
	}{Recovered: recovered})
}

func (g *Gateway) handlePOSTClean(w http.ResponseWriter, r *http.Request) {
	removed, err := g.node.CleanLocalDB(r.Context(), mux.Vars(r)["walletID"])
	if err != nil {
		http.Error(w, wrapError(err), statusForError(err))
		return
	}
	jsonResponse(w, struct {
		Removed int `json:"removed"`
	}{Removed: removed})
}
