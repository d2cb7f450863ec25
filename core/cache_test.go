package core

import (
	"testing"
	"time"
)

func TestSummaryCacheSingleUse(t *testing.T) {
	cache := newSummaryCache(time.Minute)
	cache.Put("req1", "wallet1", "send", "value")

	value, err := cache.Take("req1")
	if err != nil {
		t.Fatal(err)
	}
	if value != "value" {
		t.Errorf("Expected value, got %v", value)
	}

	if _, err := cache.Take("req1"); err != ErrStaleRequest {
		t.Errorf("Expected ErrStaleRequest on second take, got %v", err)
	}
}

func TestSummaryCacheExpiry(t *testing.T) {
	cache := newSummaryCache(time.Millisecond)
	cache.Put("req1", "wallet1", "send", "value")

	time.Sleep(time.Millisecond * 5)

	if _, err := cache.Take("req1"); err != ErrStaleRequest {
		t.Errorf("Expected ErrStaleRequest after expiry, got %v", err)
	}
}

func TestSummaryCacheSupersede(t *testing.T) {
	cache := newSummaryCache(time.Minute)
	cache.Put("req1", "wallet1", "send", "first")
	cache.Put("req2", "wallet1", "send", "second")

	// Same wallet, different kind survives.
	cache.Put("req3", "wallet1", "payment", "quote")

	if _, err := cache.Take("req1"); err != ErrStaleRequest {
		t.Errorf("Expected ErrStaleRequest for superseded entry, got %v", err)
	}
	if _, err := cache.Take("req2"); err != nil {
		t.Errorf("Expected superseding entry to be takeable, got %v", err)
	}
	if _, err := cache.Take("req3"); err != nil {
		t.Errorf("Expected other kind to survive, got %v", err)
	}
}
