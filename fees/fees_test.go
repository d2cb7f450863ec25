package fees

import (
	"testing"

	"github.com/bitcr/pocketd/models"
)

func TestInputFee(t *testing.T) {
	tests := []struct {
		numInputs int
		ppk       uint64
		expected  models.Amount
	}{
		{0, 100, 0},
		{1, 0, 0},
		{1, 100, 1},
		{10, 100, 1},
		{11, 100, 2},
		{1, 1000, 1},
		{3, 1000, 3},
		{7, 150, 2},
	}
	for i, test := range tests {
		fee := InputFee(test.numInputs, Schedule{InputFeePPK: test.ppk})
		if fee != test.expected {
			t.Errorf("Test %d: expected fee %d, got %d", i, test.expected, fee)
		}
	}
}

func TestForSwap(t *testing.T) {
	if _, err := ForSwap(0, 1, Schedule{}); err != ErrInvalidAmount {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	bd, err := ForSwap(100, 4, Schedule{InputFeePPK: 500})
	if err != nil {
		t.Fatal(err)
	}
	if bd.Base != 2 {
		t.Errorf("Expected base fee 2, got %d", bd.Base)
	}
	if bd.Reserved != 0 {
		t.Errorf("Expected zero reserved fee, got %d", bd.Reserved)
	}
}

func TestForSend(t *testing.T) {
	if _, err := ForSend(0, 1, 0, Schedule{}); err != ErrInvalidAmount {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	schedule := Schedule{InputFeePPK: 1000}

	bd, err := ForSend(30, 2, 0, schedule)
	if err != nil {
		t.Fatal(err)
	}
	if bd.Base != 2 {
		t.Errorf("Expected base fee 2, got %d", bd.Base)
	}

	// A required change swap adds its own input fee.
	bd2, err := ForSend(30, 2, 1, schedule)
	if err != nil {
		t.Fatal(err)
	}
	if bd2.Base != 3 {
		t.Errorf("Expected base fee 3, got %d", bd2.Base)
	}
	if bd2.Total() != 3 {
		t.Errorf("Expected total fee 3, got %d", bd2.Total())
	}
}

func TestForMelt(t *testing.T) {
	if _, err := ForMelt(0, 1, Schedule{}); err != ErrInvalidAmount {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	bd, err := ForMelt(1000, 3, Schedule{InputFeePPK: 200})
	if err != nil {
		t.Fatal(err)
	}
	if bd.Base != 1 {
		t.Errorf("Expected base fee 1, got %d", bd.Base)
	}
	if bd.Reserved != 10 {
		t.Errorf("Expected reserved fee 10, got %d", bd.Reserved)
	}
	if bd.Total() != 11 {
		t.Errorf("Expected total fee 11, got %d", bd.Total())
	}

	// Reserve rounds up for small amounts.
	bd2, err := ForMelt(50, 1, Schedule{})
	if err != nil {
		t.Fatal(err)
	}
	if bd2.Reserved != 1 {
		t.Errorf("Expected reserved fee 1, got %d", bd2.Reserved)
	}
}

func TestUnitPair(t *testing.T) {
	pair := UnitPair{Debit: "sat", Credit: "crsat"}

	if !pair.Contains("sat") || !pair.Contains("crsat") {
		t.Error("Pair does not contain its own units")
	}
	if pair.Contains("usd") {
		t.Error("Pair contains foreign unit")
	}

	other, ok := pair.Other("sat")
	if !ok || other != "crsat" {
		t.Errorf("Expected crsat, got %s", other)
	}
	other, ok = pair.Other("crsat")
	if !ok || other != "sat" {
		t.Errorf("Expected sat, got %s", other)
	}
	if _, ok := pair.Other("usd"); ok {
		t.Error("Expected no conversion for foreign unit")
	}
}
