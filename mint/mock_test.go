package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMock_SwapSpendsInputs(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	proofs := m.IssueProofs([]Output{
		{Amount: 8, KeysetID: "00debit000000001", Secret: "a"},
		{Amount: 4, KeysetID: "00debit000000001", Secret: "b"},
	})
	require.Len(t, proofs, 2)

	outs := []Output{{Amount: 12, KeysetID: "00debit000000001", Secret: "c"}}
	swapped, err := m.Swap(ctx, proofs, outs)
	require.NoError(t, err)
	require.Len(t, swapped, 1)

	// Inputs are now spent and cannot be swapped again.
	_, err = m.Swap(ctx, proofs, outs)
	require.Error(t, err)

	states, err := m.CheckProofStates(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []ProofState{ProofStateSpent, ProofStateSpent, ProofStateUnspent}, states)
}

func TestMock_MintQuoteLifecycle(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	quote, err := m.RequestMintQuote(ctx, 100, "sat")
	require.NoError(t, err)
	require.Equal(t, QuoteUnpaid, quote.State)

	// Minting against an unpaid quote is rejected.
	_, err = m.MintProofs(ctx, quote.QuoteID, []Output{{Amount: 100, Secret: "s"}})
	require.Error(t, err)

	require.NoError(t, m.PayMintQuote(quote.QuoteID))
	proofs, err := m.MintProofs(ctx, quote.QuoteID, []Output{{Amount: 100, Secret: "s"}})
	require.NoError(t, err)
	require.Len(t, proofs, 1)
}

func TestMock_Restore(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	m.IssueProofs([]Output{{Amount: 16, KeysetID: "00debit000000001", Secret: "known"}})

	proofs, err := m.Restore(ctx, []string{"known", "never-issued"})
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	require.Equal(t, "known", proofs[0].Secret)
}

func TestMock_Unreachable(t *testing.T) {
	m := NewMock()
	m.Unreachable = true

	_, err := m.GetKeysets(context.Background())
	require.Error(t, err)
	require.True(t, IsRetryable(err))
}

func TestIsSpent(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	proofs := m.IssueProofs([]Output{{Amount: 8, KeysetID: "00debit000000001", Secret: "gone"}})
	m.MarkSpent("gone")

	_, err := m.Swap(ctx, proofs, []Output{{Amount: 8, KeysetID: "00debit000000001", Secret: "fresh"}})
	require.Error(t, err)
	require.True(t, IsSpent(err))

	require.False(t, IsSpent(nil))
	require.False(t, IsSpent(errors.New("connection refused")))
	require.False(t, IsSpent(&Error{Op: "swap", Reason: "status 400: unknown keyset"}))
}
