package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/wallet"
)

type stubSolanaProvider struct{ pubkey string }

func (p stubSolanaProvider) Connect(_ context.Context, _ bool) (string, error) {
	return p.pubkey, nil
}
func (p stubSolanaProvider) SignTransaction(_ context.Context, tx []byte) ([]byte, error) {
	return tx, nil
}

func TestSolanaBuilder_NoRPCFailsFastToManualPath(t *testing.T) {
	d := wallet.NewSolanaDiscovery([]wallet.SolanaCandidate{
		{Label: "Phantom", Provider: stubSolanaProvider{pubkey: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"}},
	})
	b := NewSolanaBuilder(d, SolanaConfig{
		Mint:          "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenDecimals: 6,
		Treasury:      "4Nd1mYvNQf6uS2VfvxcdJkJqMGaPq9nLBZJGPMTbXVxn",
		Cluster:       "solana",
	}, nil, nil)

	_, err := b.Connect(context.Background())
	require.NoError(t, err)

	_, err = b.SendEntryFee(context.Background(), 5)
	var gateErr *types.Error
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, types.ErrChainUnavailable, gateErr.Code)
	assert.Contains(t, gateErr.Message, "manual payment")
}

func TestSolanaBuilder_ConnectRejectsBadPubkey(t *testing.T) {
	d := wallet.NewSolanaDiscovery([]wallet.SolanaCandidate{
		{Label: "Phantom", Provider: stubSolanaProvider{pubkey: "not-base58-0OIl"}},
	})
	b := NewSolanaBuilder(d, SolanaConfig{}, nil, nil)

	_, err := b.Connect(context.Background())
	assert.Error(t, err)
}

func TestSolanaBuilder_Ecosystem(t *testing.T) {
	b := NewSolanaBuilder(nil, SolanaConfig{}, nil, nil)
	assert.Equal(t, types.EcosystemSolana, b.Ecosystem())
}
