package wallet

import (
	"context"
	"fmt"

	"github.com/seedlabs/entrygate/types"
)

// CardanoWallet is one named entry of the CIP-30 wallet registry object.
// IsEnabled is the non-prompting check; Enable opens the full API and may
// prompt the user on first use.
type CardanoWallet interface {
	IsEnabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) (CardanoAPI, error)
}

// CardanoAPI is the enabled CIP-30 surface consumed by the payment flow.
// Addresses and UTXOs travel as CBOR hex strings, matching the wire format
// CIP-30 wallets expose.
type CardanoAPI interface {
	GetUsedAddresses(ctx context.Context) ([]string, error)
	GetChangeAddress(ctx context.Context) (string, error)
	GetUtxos(ctx context.Context) ([]string, error)
	SignTx(ctx context.Context, txCBORHex string, partial bool) (witnessSetCBORHex string, err error)
	SubmitTx(ctx context.Context, signedTxCBORHex string) (txHash string, err error)
}

// LovelaceSender is an optional wallet-native "send lovelace" capability.
// When a wallet exposes it, manual transaction assembly is skipped entirely.
type LovelaceSender interface {
	SendLovelace(ctx context.Context, toAddress string, lovelace uint64) (txHash string, err error)
}

// CardanoCandidate is one named sub-wallet of the injected registry.
type CardanoCandidate struct {
	Label  string
	Wallet CardanoWallet
}

// CardanoDiscovery probes the CIP-30 wallet registry.
type CardanoDiscovery struct {
	candidates []CardanoCandidate
}

var _ Capability = (*CardanoDiscovery)(nil)

func NewCardanoDiscovery(candidates []CardanoCandidate) *CardanoDiscovery {
	return &CardanoDiscovery{candidates: candidates}
}

func (d *CardanoDiscovery) Ecosystem() types.Ecosystem { return types.EcosystemCardano }

// Probe checks each present sub-wallet with the non-prompting IsEnabled call
// and only enables (and fetches addresses) when the wallet was already
// enabled, so no surprise prompt fires.
func (d *CardanoDiscovery) Probe(ctx context.Context) (*types.WalletDescriptor, error) {
	var detected *types.WalletDescriptor
	for _, cand := range d.candidates {
		if cand.Wallet == nil {
			continue
		}
		if detected == nil {
			detected = &types.WalletDescriptor{
				Ecosystem: types.EcosystemCardano,
				Label:     cand.Label,
				Provider:  cand.Wallet,
			}
		}
		enabled, err := cand.Wallet.IsEnabled(ctx)
		if err != nil || !enabled {
			continue
		}
		api, err := cand.Wallet.Enable(ctx)
		if err != nil {
			continue
		}
		addr := firstUsedAddress(ctx, api)
		return &types.WalletDescriptor{
			Ecosystem: types.EcosystemCardano,
			Label:     cand.Label,
			Address:   addr,
			Connected: addr != "",
			Provider:  cand.Wallet,
		}, nil
	}
	return detected, nil
}

// Connect enables the first present sub-wallet, prompting if needed.
func (d *CardanoDiscovery) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	for _, cand := range d.candidates {
		if cand.Wallet == nil {
			continue
		}
		api, err := cand.Wallet.Enable(ctx)
		if err != nil {
			if IsUserRejection(err) {
				return nil, types.Errorf(types.ErrUserRejected, "connection rejected in %s", cand.Label)
			}
			return nil, fmt.Errorf("enabling %s: %w", cand.Label, err)
		}
		addr := firstUsedAddress(ctx, api)
		return &types.WalletDescriptor{
			Ecosystem: types.EcosystemCardano,
			Label:     cand.Label,
			Address:   addr,
			Connected: addr != "",
			Provider:  cand.Wallet,
		}, nil
	}
	return nil, types.Errorf(types.ErrNoWallet, "no Cardano wallet extension detected; install Nami, Eternl or a CIP-30 compatible wallet")
}

func firstUsedAddress(ctx context.Context, api CardanoAPI) string {
	addrs, err := api.GetUsedAddresses(ctx)
	if err == nil && len(addrs) > 0 {
		return addrs[0]
	}
	change, err := api.GetChangeAddress(ctx)
	if err == nil {
		return change
	}
	return ""
}
