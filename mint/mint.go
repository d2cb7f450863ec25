package mint

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitcr/pocketd/models"
)

// QuoteState is the lifecycle state of a mint or melt quote as reported
// by the mint.
type QuoteState string

const (
	QuoteUnpaid  QuoteState = "UNPAID"
	QuotePending QuoteState = "PENDING"
	QuotePaid    QuoteState = "PAID"
	QuoteIssued  QuoteState = "ISSUED"
	QuoteExpired QuoteState = "EXPIRED"
)

// ProofState is the spend state of a proof as reported by the mint.
type ProofState string

const (
	ProofStateUnspent ProofState = "UNSPENT"
	ProofStatePending ProofState = "PENDING"
	ProofStateSpent   ProofState = "SPENT"
)

// Proof is the wire representation of a bearer proof exchanged with the
// mint.
type Proof struct {
	Amount    models.Amount `json:"amount"`
	KeysetID  string        `json:"id"`
	Secret    string        `json:"secret"`
	Signature string        `json:"C"`
}

// Output is a requested proof denomination submitted to the mint for
// signing.
type Output struct {
	Amount   models.Amount `json:"amount"`
	KeysetID string        `json:"id"`
	Secret   string        `json:"secret"`
}

// KeysetInfo describes one of the mint's keysets.
type KeysetInfo struct {
	ID          string `json:"id"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
	InputFeePPK uint64 `json:"input_fee_ppk"`
	FinalExpiry int64  `json:"final_expiry,omitempty"`
}

// MintQuote is a quote for minting new proofs once the quoted request is
// paid out of band.
type MintQuote struct {
	QuoteID string        `json:"quote"`
	Request string        `json:"request"`
	Amount  models.Amount `json:"amount"`
	Unit    string        `json:"unit"`
	State   QuoteState    `json:"state"`
	Expiry  int64         `json:"expiry"`
}

// MeltQuote is a quote for paying an outbound request by melting proofs.
type MeltQuote struct {
	QuoteID    string        `json:"quote"`
	Amount     models.Amount `json:"amount"`
	FeeReserve models.Amount `json:"fee_reserve"`
	Unit       string        `json:"unit"`
	State      QuoteState    `json:"state"`
	Expiry     int64         `json:"expiry"`
}

// MeltResult is the outcome of executing a melt. Change holds any proofs
// returned from the unused portion of the fee reserve.
type MeltResult struct {
	State  QuoteState `json:"state"`
	Change []Proof    `json:"change"`
}

// Error is returned for any failed call to the mint. Retryable indicates a
// transport or transient mint failure where the caller may try again;
// non-retryable errors are protocol-level rejections.
type Error struct {
	Op        string
	Reason    string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("mint: %s: %s", e.Op, e.Reason)
}

// IsRetryable returns whether err is a mint error that may succeed on
// retry.
func IsRetryable(err error) bool {
	merr, ok := err.(*Error)
	return ok && merr.Retryable
}

// IsSpent returns whether err is the mint rejecting inputs that were
// already spent.
func IsSpent(err error) bool {
	merr, ok := err.(*Error)
	return ok && strings.Contains(merr.Reason, "spent")
}

// Connector is the interface to the mint. It owns the blind-signature
// protocol details; callers deal only in finished proofs and quotes.
type Connector interface {
	// GetKeysets returns all keysets the mint has ever published,
	// active and inactive.
	GetKeysets(ctx context.Context) ([]KeysetInfo, error)

	// GetKeys returns the public keys of the given keyset keyed by
	// denomination.
	GetKeys(ctx context.Context, keysetID string) (map[uint64]string, error)

	// RequestMintQuote asks the mint for a quote to issue amount of unit.
	RequestMintQuote(ctx context.Context, amount models.Amount, unit string) (*MintQuote, error)

	// MintQuoteState returns the current state of a mint quote.
	MintQuoteState(ctx context.Context, quoteID string) (*MintQuote, error)

	// MintProofs redeems a paid mint quote for signed proofs matching the
	// requested outputs.
	MintProofs(ctx context.Context, quoteID string, outputs []Output) ([]Proof, error)

	// Swap exchanges the input proofs for new proofs matching the
	// requested outputs. The inputs are spent by this call.
	Swap(ctx context.Context, inputs []Proof, outputs []Output) ([]Proof, error)

	// MeltQuote asks the mint for a quote to pay the given request.
	MeltQuote(ctx context.Context, request string, unit string) (*MeltQuote, error)

	// Melt executes a melt quote by spending the input proofs.
	Melt(ctx context.Context, quoteID string, inputs []Proof) (*MeltResult, error)

	// MeltQuoteState returns the current state of a melt quote.
	MeltQuoteState(ctx context.Context, quoteID string) (*MeltQuote, error)

	// CheckProofStates returns the spend state for each secret, in the
	// same order as the input.
	CheckProofStates(ctx context.Context, secrets []string) ([]ProofState, error)

	// Restore returns signed proofs for any of the given secrets the mint
	// has previously issued against.
	Restore(ctx context.Context, secrets []string) ([]Proof, error)
}
