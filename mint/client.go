package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/bitcr/pocketd/models"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("MINT")

const defaultTimeout = time.Second * 30

// Client is a Connector backed by the mint's JSON HTTP API.
type Client struct {
	mintURL string
	client  *http.Client
}

// NewClient returns a Client for the mint at mintURL.
func NewClient(mintURL string) *Client {
	return &Client{
		mintURL: strings.TrimSuffix(mintURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTP returns a Client using the provided http client. Used
// by tests to inject a mocked transport.
func NewClientWithHTTP(mintURL string, httpClient *http.Client) *Client {
	return &Client{
		mintURL: strings.TrimSuffix(mintURL, "/"),
		client:  httpClient,
	}
}

func (c *Client) GetKeysets(ctx context.Context) ([]KeysetInfo, error) {
	var resp struct {
		Keysets []KeysetInfo `json:"keysets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/keysets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keysets, nil
}

func (c *Client) GetKeys(ctx context.Context, keysetID string) (map[uint64]string, error) {
	var resp struct {
		Keysets []struct {
			ID   string            `json:"id"`
			Keys map[uint64]string `json:"keys"`
		} `json:"keysets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/keys/"+keysetID, nil, &resp); err != nil {
		return nil, err
	}
	for _, ks := range resp.Keysets {
		if ks.ID == keysetID {
			return ks.Keys, nil
		}
	}
	return nil, &Error{Op: "getkeys", Reason: "keyset not found"}
}

func (c *Client) RequestMintQuote(ctx context.Context, amount models.Amount, unit string) (*MintQuote, error) {
	req := struct {
		Amount models.Amount `json:"amount"`
		Unit   string        `json:"unit"`
	}{amount, unit}
	quote := new(MintQuote)
	if err := c.do(ctx, http.MethodPost, "/v1/mint/quote", req, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (c *Client) MintQuoteState(ctx context.Context, quoteID string) (*MintQuote, error) {
	quote := new(MintQuote)
	if err := c.do(ctx, http.MethodGet, "/v1/mint/quote/"+quoteID, nil, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (c *Client) MintProofs(ctx context.Context, quoteID string, outputs []Output) ([]Proof, error) {
	req := struct {
		Quote   string   `json:"quote"`
		Outputs []Output `json:"outputs"`
	}{quoteID, outputs}
	var resp struct {
		Proofs []Proof `json:"proofs"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/mint", req, &resp); err != nil {
		return nil, err
	}
	return resp.Proofs, nil
}

func (c *Client) Swap(ctx context.Context, inputs []Proof, outputs []Output) ([]Proof, error) {
	req := struct {
		Inputs  []Proof  `json:"inputs"`
		Outputs []Output `json:"outputs"`
	}{inputs, outputs}
	var resp struct {
		Proofs []Proof `json:"proofs"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/swap", req, &resp); err != nil {
		return nil, err
	}
	return resp.Proofs, nil
}

func (c *Client) MeltQuote(ctx context.Context, request string, unit string) (*MeltQuote, error) {
	req := struct {
		Request string `json:"request"`
		Unit    string `json:"unit"`
	}{request, unit}
	quote := new(MeltQuote)
	if err := c.do(ctx, http.MethodPost, "/v1/melt/quote", req, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (c *Client) Melt(ctx context.Context, quoteID string, inputs []Proof) (*MeltResult, error) {
	req := struct {
		Quote  string  `json:"quote"`
		Inputs []Proof `json:"inputs"`
	}{quoteID, inputs}
	result := new(MeltResult)
	if err := c.do(ctx, http.MethodPost, "/v1/melt", req, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) MeltQuoteState(ctx context.Context, quoteID string) (*MeltQuote, error) {
	quote := new(MeltQuote)
	if err := c.do(ctx, http.MethodGet, "/v1/melt/quote/"+quoteID, nil, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

func (c *Client) CheckProofStates(ctx context.Context, secrets []string) ([]ProofState, error) {
	req := struct {
		Secrets []string `json:"secrets"`
	}{secrets}
	var resp struct {
		States []ProofState `json:"states"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/checkstate", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.States) != len(secrets) {
		return nil, &Error{Op: "checkstate", Reason: "state count mismatch"}
	}
	return resp.States, nil
}

func (c *Client) Restore(ctx context.Context, secrets []string) ([]Proof, error) {
	req := struct {
		Secrets []string `json:"secrets"`
	}{secrets}
	var resp struct {
		Proofs []Proof `json:"proofs"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/restore", req, &resp); err != nil {
		return nil, err
	}
	return resp.Proofs, nil
}

// do executes a single JSON request against the mint and decodes the
// response into out. Transport failures and 5xx responses are marked
// retryable; 4xx responses are protocol rejections and are not.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = new(bytes.Buffer)
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return &Error{Op: op, Reason: err.Error()}
		}
	}

	var (
		req *http.Request
		err error
	)
	if reqBody != nil {
		req, err = http.NewRequest(method, c.mintURL+path, reqBody)
	} else {
		req, err = http.NewRequest(method, c.mintURL+path, nil)
	}
	if err != nil {
		return &Error{Op: op, Reason: err.Error()}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warningf("Mint request %s failed: %s", op, err)
		return &Error{Op: op, Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := ioutil.ReadAll(resp.Body)
		reason := strings.TrimSpace(string(b))
		if reason == "" {
			reason = resp.Status
		}
		return &Error{
			Op:        op,
			Reason:    fmt.Sprintf("status %d: %s", resp.StatusCode, reason),
			Retryable: resp.StatusCode >= 500,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Reason: "malformed response: " + err.Error()}
	}
	return nil
}
