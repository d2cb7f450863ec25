package mint

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const testMintURL = "https://mint.example.com"

func newTestClient() (*Client, func()) {
	mockedHTTPClient := http.Client{}
	httpmock.ActivateNonDefault(&mockedHTTPClient)
	return NewClientWithHTTP(testMintURL, &mockedHTTPClient), httpmock.DeactivateAndReset
}

func TestClient_GetKeysets(t *testing.T) {
	client, teardown := newTestClient()
	defer teardown()

	httpmock.RegisterResponder(http.MethodGet, testMintURL+"/v1/keysets",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"keysets": []map[string]interface{}{
					{"id": "00aabbcc", "unit": "sat", "active": true, "input_fee_ppk": 100},
					{"id": "00ddeeff", "unit": "crsat", "active": false, "final_expiry": 1750000000},
				},
			})
		},
	)

	keysets, err := client.GetKeysets(context.Background())
	require.NoError(t, err)
	require.Len(t, keysets, 2)
	require.Equal(t, "00aabbcc", keysets[0].ID)
	require.True(t, keysets[0].Active)
	require.EqualValues(t, 100, keysets[0].InputFeePPK)
	require.EqualValues(t, 1750000000, keysets[1].FinalExpiry)
}

func TestClient_MintQuoteFlow(t *testing.T) {
	client, teardown := newTestClient()
	defer teardown()

	httpmock.RegisterResponder(http.MethodPost, testMintURL+"/v1/mint/quote",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"quote":   "q1",
				"request": "pay-me",
				"amount":  100,
				"unit":    "sat",
				"state":   "UNPAID",
			})
		},
	)
	httpmock.RegisterResponder(http.MethodGet, testMintURL+"/v1/mint/quote/q1",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"quote": "q1",
				"state": "PAID",
			})
		},
	)
	httpmock.RegisterResponder(http.MethodPost, testMintURL+"/v1/mint",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"proofs": []map[string]interface{}{
					{"amount": 64, "id": "00aabbcc", "secret": "s1", "C": "sig1"},
					{"amount": 32, "id": "00aabbcc", "secret": "s2", "C": "sig2"},
					{"amount": 4, "id": "00aabbcc", "secret": "s3", "C": "sig3"},
				},
			})
		},
	)

	quote, err := client.RequestMintQuote(context.Background(), 100, "sat")
	require.NoError(t, err)
	require.Equal(t, "q1", quote.QuoteID)
	require.Equal(t, QuoteUnpaid, quote.State)

	quote, err = client.MintQuoteState(context.Background(), "q1")
	require.NoError(t, err)
	require.Equal(t, QuotePaid, quote.State)

	proofs, err := client.MintProofs(context.Background(), "q1", []Output{
		{Amount: 64, KeysetID: "00aabbcc", Secret: "s1"},
		{Amount: 32, KeysetID: "00aabbcc", Secret: "s2"},
		{Amount: 4, KeysetID: "00aabbcc", Secret: "s3"},
	})
	require.NoError(t, err)
	require.Len(t, proofs, 3)
	require.Equal(t, "sig1", proofs[0].Signature)
}

func TestClient_CheckProofStates(t *testing.T) {
	client, teardown := newTestClient()
	defer teardown()

	httpmock.RegisterResponder(http.MethodPost, testMintURL+"/v1/checkstate",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"states": []string{"UNSPENT", "SPENT"},
			})
		},
	)

	states, err := client.CheckProofStates(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	require.Equal(t, []ProofState{ProofStateUnspent, ProofStateSpent}, states)
}

func TestClient_ErrorClassification(t *testing.T) {
	client, teardown := newTestClient()
	defer teardown()

	httpmock.RegisterResponder(http.MethodGet, testMintURL+"/v1/keysets",
		httpmock.NewStringResponder(http.StatusInternalServerError, "database on fire"),
	)
	_, err := client.GetKeysets(context.Background())
	require.Error(t, err)
	require.True(t, IsRetryable(err))

	httpmock.Reset()
	httpmock.RegisterResponder(http.MethodPost, testMintURL+"/v1/swap",
		httpmock.NewStringResponder(http.StatusBadRequest, "token already spent"),
	)
	_, err = client.Swap(context.Background(), nil, nil)
	require.Error(t, err)
	require.False(t, IsRetryable(err))
	merr, ok := err.(*Error)
	require.True(t, ok)
	require.Contains(t, merr.Reason, "token already spent")

	// Transport failures are retryable.
	httpmock.Reset()
	_, err = client.GetKeysets(context.Background())
	require.Error(t, err)
	require.True(t, IsRetryable(err))
}
