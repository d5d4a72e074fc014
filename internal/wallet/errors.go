package wallet

import "errors"

var (
	// ErrDuplicateKey occurs when a wallet already exists for the (owner, address) pair.
	ErrDuplicateKey = errors.New("wallet already exists")

	// ErrMultipleAddressesNotAllowed occurs when the asset is limited to a single
	// address per owner and the owner already holds a wallet for it.
	ErrMultipleAddressesNotAllowed = errors.New("multiple wallet addresses not allowed")

	// ErrAmbiguousWallet means more than one wallet matched an (owner, asset) lookup.
	// Creation checks should make this unreachable, so it is logged as a bug signal.
	ErrAmbiguousWallet = errors.New("ambiguous wallet")

	// ErrAssetMismatch occurs when a funds operation targets a different asset than the wallet holds.
	ErrAssetMismatch = errors.New("asset mismatch")

	// ErrTransactionNotAllowed occurs when the wallet state blocks the operation kind.
	ErrTransactionNotAllowed = errors.New("transaction not allowed")

	// ErrInsufficientFunds occurs when a withdraw exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotFound is the explicit absent-wallet outcome of lookups.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidAmount rejects negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidArgument rejects malformed requests (empty owner, unknown state, ...).
	ErrInvalidArgument = errors.New("invalid argument")
)
