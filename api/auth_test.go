package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitcr/pocketd/core"
)

func TestAuthenticationMiddleware(t *testing.T) {
	node := &mockNode{
		balanceFunc: func(walletID string) (*core.Balances, error) {
			return &core.Balances{Debit: 1, DebitUnit: "sat"}, nil
		},
	}
	gateway := &Gateway{
		node: node,
		config: &GatewayConfig{
			Cookie: "letmein",
		},
	}

	r := gateway.newV1Router()
	r.Use(gateway.AuthenticationMiddleware)

	ts := httptest.NewServer(r)
	defer ts.Close()

	// No cookie.
	res, err := http.Get(ts.URL + "/v1/wallet/wallet1/balance")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status %d without cookie, got %d", http.StatusForbidden, res.StatusCode)
	}

	// Wrong cookie.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/wallet/wallet1/balance", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "wrong"})
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status %d with wrong cookie, got %d", http.StatusForbidden, res.StatusCode)
	}

	// Correct cookie.
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/v1/wallet/wallet1/balance", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "letmein"})
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d with correct cookie, got %d", http.StatusOK, res.StatusCode)
	}
}
