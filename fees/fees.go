package fees

import (
	"errors"

	"github.com/bitcr/pocketd/models"
)

// ErrInvalidAmount is returned when a fee computation is requested for a
// zero amount.
var ErrInvalidAmount = errors.New("invalid amount")

// meltReservePPK is the portion of the melt amount, in parts per thousand,
// reserved up front to cover the mint's network fee. Any unused portion is
// returned as change when the melt settles.
const meltReservePPK = 10

// Schedule holds the fee parameters of a keyset. InputFeePPK is the fee
// charged per input proof, expressed in parts per thousand of a unit.
type Schedule struct {
	InputFeePPK uint64
}

// Breakdown is the result of a fee computation. Base is the fee owed to the
// mint for consuming the input proofs. Reserved is the network fee held back
// for a melt; it is zero for swaps and sends.
type Breakdown struct {
	Base     models.Amount `json:"base"`
	Reserved models.Amount `json:"reserved"`
}

// Total returns the sum of the base and reserved fees.
func (b Breakdown) Total() models.Amount {
	return b.Base + b.Reserved
}

// InputFee returns the fee for consuming numInputs proofs under the given
// schedule, rounded up to the nearest whole unit.
func InputFee(numInputs int, schedule Schedule) models.Amount {
	if numInputs <= 0 {
		return 0
	}
	ppk := uint64(numInputs) * schedule.InputFeePPK
	return models.Amount((ppk + 999) / 1000)
}

// ForSwap computes the fees for swapping numInputs proofs into new
// denominations.
func ForSwap(amount models.Amount, numInputs int, schedule Schedule) (Breakdown, error) {
	if amount == 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	return Breakdown{Base: InputFee(numInputs, schedule)}, nil
}

// ForSend computes the fees for sending amount using numInputs selected
// proofs. When the selection overshoots and requires a swap for exact
// change, swapInputs is the number of proofs fed to that swap and its fee
// is additive.
func ForSend(amount models.Amount, numInputs, swapInputs int, schedule Schedule) (Breakdown, error) {
	if amount == 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	base := InputFee(numInputs, schedule)
	if swapInputs > 0 {
		base += InputFee(swapInputs, schedule)
	}
	return Breakdown{Base: base}, nil
}

// ForMelt computes the fees for melting amount with numInputs proofs. The
// reserved portion covers the mint's network fee and is refunded as change
// if unused.
func ForMelt(amount models.Amount, numInputs int, schedule Schedule) (Breakdown, error) {
	if amount == 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	reserved := models.Amount((uint64(amount)*meltReservePPK + 999) / 1000)
	return Breakdown{
		Base:     InputFee(numInputs, schedule),
		Reserved: reserved,
	}, nil
}

// UnitPair binds a wallet's debit unit to its credit unit. The two tracks
// exchange one to one, so conversion only changes the unit label.
type UnitPair struct {
	Debit  string
	Credit string
}

// Contains returns whether unit is one of the pair's units.
func (p UnitPair) Contains(unit string) bool {
	return unit == p.Debit || unit == p.Credit
}

// Other returns the opposite unit of the pair, or false if unit is not a
// member of the pair.
func (p UnitPair) Other(unit string) (string, bool) {
	switch unit {
	case p.Debit:
		return p.Credit, true
	case p.Credit:
		return p.Debit, true
	default:
		return "", false
	}
}
