package models

// Amount is an integer quantity of a wallet unit. Proofs are issued in
// power-of-two denominations so amounts decompose cleanly.
type Amount uint64

// Split decomposes the amount into power-of-two denominations, smallest
// first. The returned slice sums to the original amount.
func (a Amount) Split() []Amount {
	var parts []Amount
	for bit := uint(0); bit < 64; bit++ {
		if a&(1<<bit) != 0 {
			parts = append(parts, Amount(1)<<bit)
		}
	}
	return parts
}

// SumProofs returns the total amount of the given proofs.
func SumProofs(proofs []Proof) Amount {
	var total Amount
	for _, p := range proofs {
		total += p.Amount
	}
	return total
}
