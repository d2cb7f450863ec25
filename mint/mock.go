package mint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/bitcr/pocketd/models"
	"github.com/google/uuid"
)

// Mock is an in-memory Connector used by tests. It tracks issued proofs
// and spent secrets so that double-spends and restores behave like a real
// mint, without any of the cryptography.
type Mock struct {
	mtx sync.Mutex

	keysets    []KeysetInfo
	mintQuotes map[string]*MintQuote
	meltQuotes map[string]*MeltQuote
	issued     map[string]Proof
	spent      map[string]bool

	// Unreachable makes every call fail with a retryable error.
	Unreachable bool

	// MeltState overrides the state returned by Melt. Defaults to
	// QuotePaid.
	MeltState QuoteState
}

// NewMock returns a Mock publishing the given keysets. If none are given a
// single active "sat" keyset with no fees is published.
func NewMock(keysets ...KeysetInfo) *Mock {
	if len(keysets) == 0 {
		keysets = []KeysetInfo{{ID: "00debit000000001", Unit: "sat", Active: true}}
	}
	return &Mock{
		keysets:    keysets,
		mintQuotes: make(map[string]*MintQuote),
		meltQuotes: make(map[string]*MeltQuote),
		issued:     make(map[string]Proof),
		spent:      make(map[string]bool),
		MeltState:  QuotePaid,
	}
}

func (m *Mock) down() error {
	if m.Unreachable {
		return &Error{Op: "mock", Reason: "connection refused", Retryable: true}
	}
	return nil
}

func (m *Mock) sign(secret string) string {
	h := sha256.Sum256([]byte("mocksig:" + secret))
	return hex.EncodeToString(h[:])
}

func (m *Mock) issue(outputs []Output) []Proof {
	proofs := make([]Proof, 0, len(outputs))
	for _, out := range outputs {
		proof := Proof{
			Amount:    out.Amount,
			KeysetID:  out.KeysetID,
			Secret:    out.Secret,
			Signature: m.sign(out.Secret),
		}
		m.issued[out.Secret] = proof
		proofs = append(proofs, proof)
	}
	return proofs
}

// spend validates and consumes the input proofs. It fails if any input was
// never issued by this mock or is already spent.
func (m *Mock) spend(op string, inputs []Proof) error {
	for _, in := range inputs {
		issued, ok := m.issued[in.Secret]
		if !ok || issued.Signature != in.Signature {
			return &Error{Op: op, Reason: "status 400: unknown proof"}
		}
		if m.spent[in.Secret] {
			return &Error{Op: op, Reason: "status 400: token already spent"}
		}
	}
	for _, in := range inputs {
		m.spent[in.Secret] = true
	}
	return nil
}

func (m *Mock) GetKeysets(ctx context.Context) ([]KeysetInfo, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	keysets := make([]KeysetInfo, len(m.keysets))
	copy(keysets, m.keysets)
	return keysets, nil
}

func (m *Mock) GetKeys(ctx context.Context, keysetID string) (map[uint64]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	for _, ks := range m.keysets {
		if ks.ID == keysetID {
			keys := make(map[uint64]string)
			for i := uint(0); i < 32; i++ {
				keys[1<<i] = m.sign(fmt.Sprintf("%s:%d", keysetID, 1<<i))
			}
			return keys, nil
		}
	}
	return nil, &Error{Op: "getkeys", Reason: "keyset not found"}
}

func (m *Mock) RequestMintQuote(ctx context.Context, amount models.Amount, unit string) (*MintQuote, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	quote := &MintQuote{
		QuoteID: uuid.New().String(),
		Request: "mockreq:" + uuid.New().String(),
		Amount:  amount,
		Unit:    unit,
		State:   QuoteUnpaid,
		Expiry:  time.Now().Add(time.Hour).Unix(),
	}
	m.mintQuotes[quote.QuoteID] = quote
	return quote, nil
}

func (m *Mock) MintQuoteState(ctx context.Context, quoteID string) (*MintQuote, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	quote, ok := m.mintQuotes[quoteID]
	if !ok {
		return nil, &Error{Op: "mintquotestate", Reason: "status 404: unknown quote"}
	}
	q := *quote
	return &q, nil
}

func (m *Mock) MintProofs(ctx context.Context, quoteID string, outputs []Output) ([]Proof, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	quote, ok := m.mintQuotes[quoteID]
	if !ok {
		return nil, &Error{Op: "mint", Reason: "status 404: unknown quote"}
	}
	if quote.State != QuotePaid {
		return nil, &Error{Op: "mint", Reason: "status 400: quote not paid"}
	}
	quote.State = QuoteIssued
	return m.issue(outputs), nil
}

func (m *Mock) Swap(ctx context.Context, inputs []Proof, outputs []Output) ([]Proof, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	if err := m.spend("swap", inputs); err != nil {
		return nil, err
	}
	return m.issue(outputs), nil
}

func (m *Mock) MeltQuote(ctx context.Context, request string, unit string) (*MeltQuote, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	req, err := models.ParsePaymentRequest(request)
	if err != nil {
		return nil, &Error{Op: "meltquote", Reason: "status 400: invalid request"}
	}
	quote := &MeltQuote{
		QuoteID:    uuid.New().String(),
		Amount:     req.Amount,
		FeeReserve: models.Amount((uint64(req.Amount)*10 + 999) / 1000),
		Unit:       unit,
		State:      QuoteUnpaid,
		Expiry:     time.Now().Add(time.Hour).Unix(),
	}
	m.meltQuotes[quote.QuoteID] = quote
	return quote, nil
}

func (m *Mock) Melt(ctx context.Context, quoteID string, inputs []Proof) (*MeltResult, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	quote, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, &Error{Op: "melt", Reason: "status 404: unknown quote"}
	}
	if err := m.spend("melt", inputs); err != nil {
		return nil, err
	}
	quote.State = m.MeltState
	return &MeltResult{State: quote.State}, nil
}

func (m *Mock) MeltQuoteState(ctx context.Context, quoteID string) (*MeltQuote, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	quote, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, &Error{Op: "meltquotestate", Reason: "status 404: unknown quote"}
	}
	q := *quote
	return &q, nil
}

func (m *Mock) CheckProofStates(ctx context.Context, secrets []string) ([]ProofState, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	states := make([]ProofState, len(secrets))
	for i, secret := range secrets {
		switch {
		case m.spent[secret]:
			states[i] = ProofStateSpent
		default:
			states[i] = ProofStateUnspent
		}
	}
	return states, nil
}

func (m *Mock) Restore(ctx context.Context, secrets []string) ([]Proof, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	var proofs []Proof
	for _, secret := range secrets {
		if proof, ok := m.issued[secret]; ok {
			proofs = append(proofs, proof)
		}
	}
	return proofs, nil
}

// IssueProofs mints proofs directly into existence, bypassing the quote
// flow. Test setup helper.
func (m *Mock) IssueProofs(outputs []Output) []Proof {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.issue(outputs)
}

// PayMintQuote marks a mint quote paid, simulating out of band settlement.
func (m *Mock) PayMintQuote(quoteID string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	quote, ok := m.mintQuotes[quoteID]
	if !ok {
		return fmt.Errorf("unknown quote %s", quoteID)
	}
	quote.State = QuotePaid
	return nil
}

// MarkSpent flags a secret as spent without going through swap or melt.
// Test setup helper.
func (m *Mock) MarkSpent(secret string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.spent[secret] = true
}
