// Package clients implements the per-ecosystem transaction builders that
// turn a USD entry fee into a chain-native value transfer submitted through
// the connected wallet.
package clients

import (
	"context"

	"github.com/seedlabs/entrygate/types"
)

// Builder constructs and submits one ecosystem's value transfer.
type Builder interface {
	Ecosystem() types.Ecosystem

	// Connect establishes a wallet connection, prompting the user if
	// necessary, and returns the connected descriptor.
	Connect(ctx context.Context) (*types.WalletDescriptor, error)

	// SendEntryFee submits a transfer of the USD amount to the treasury and
	// returns as soon as a transaction reference exists. On-chain finality is
	// the Verification Service's job, not the builder's.
	SendEntryFee(ctx context.Context, amountUSD float64) (*SendReceipt, error)
}

// NetworkSwitcher is implemented by builders that must align the wallet to a
// specific chain before sending (EVM only).
type NetworkSwitcher interface {
	EnsureNetwork(ctx context.Context) error
}

// SendReceipt identifies a submitted transfer.
type SendReceipt struct {
	TxHash       string
	SenderWallet string
	Chain        string
}
