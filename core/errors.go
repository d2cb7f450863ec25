package core

import (
	"errors"

	"github.com/bitcr/pocketd/fees"
	"github.com/bitcr/pocketd/ledger"
	"github.com/bitcr/pocketd/pocket"
)

// The full error taxonomy of the engine. Errors raised by the leaf
// packages are aliased here so callers only deal with one set.
var (
	// ErrInvalidAmount - zero or nonsensical amount.
	ErrInvalidAmount = fees.ErrInvalidAmount

	// ErrInsufficientFunds - available proofs cannot cover the request.
	ErrInsufficientFunds = pocket.ErrInsufficientFunds

	// ErrProofLocked - a concurrent operation holds the proofs.
	ErrProofLocked = pocket.ErrProofLocked

	// ErrNotFound - unknown wallet, transaction or pending id.
	ErrNotFound = ledger.ErrNotFound

	// ErrInvalidToken - the token string cannot be decoded or refers to
	// a different mint.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAlreadySpent - the token's proofs were already claimed.
	ErrAlreadySpent = errors.New("token already spent")

	// ErrUnsupportedUnit - the request or token unit does not match the
	// wallet's units.
	ErrUnsupportedUnit = errors.New("unsupported unit")

	// ErrInvalidRequest - malformed payment request.
	ErrInvalidRequest = errors.New("invalid payment request")

	// ErrStaleRequest - the quoted summary expired or was already
	// consumed.
	ErrStaleRequest = errors.New("stale request")

	// ErrInvalidMnemonic - the mnemonic fails checksum validation. Fatal
	// to the call; retrying cannot help.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrMintUnreachable - the mint could not be contacted. Retryable.
	ErrMintUnreachable = errors.New("mint unreachable")

	// ErrWalletExists - a wallet with the given name is already
	// registered.
	ErrWalletExists = errors.New("wallet name already in use")
)
