package wallet

import (
	"context"
	"fmt"

	"github.com/seedlabs/entrygate/types"
)

// SolanaProvider is the bridge to an injected Solana wallet (Phantom-style).
// Connect with onlyIfTrusted=true must not prompt and fails when the site
// was never approved before.
type SolanaProvider interface {
	Connect(ctx context.Context, onlyIfTrusted bool) (pubkey string, err error)
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)
}

// SolanaCandidate is one named provider object to probe.
type SolanaCandidate struct {
	Label    string
	Provider SolanaProvider
}

// SolanaDiscovery probes an ordered list of Solana provider candidates.
type SolanaDiscovery struct {
	candidates []SolanaCandidate
}

var _ Capability = (*SolanaDiscovery)(nil)

func NewSolanaDiscovery(candidates []SolanaCandidate) *SolanaDiscovery {
	return &SolanaDiscovery{candidates: candidates}
}

func (d *SolanaDiscovery) Ecosystem() types.Ecosystem { return types.EcosystemSolana }

// Probe attempts a trusted-only connect against the first present provider.
// Rejection is swallowed and still yields a descriptor with Connected=false,
// so the UI can show "detected" without a surprise prompt.
func (d *SolanaDiscovery) Probe(ctx context.Context) (*types.WalletDescriptor, error) {
	for _, cand := range d.candidates {
		if cand.Provider == nil {
			continue
		}
		desc := &types.WalletDescriptor{
			Ecosystem: types.EcosystemSolana,
			Label:     cand.Label,
			Provider:  cand.Provider,
		}
		pubkey, err := cand.Provider.Connect(ctx, true)
		if err == nil && pubkey != "" {
			desc.Address = pubkey
			desc.Connected = true
		}
		return desc, nil
	}
	return nil, nil
}

// Connect prompts the first present provider for approval.
func (d *SolanaDiscovery) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	for _, cand := range d.candidates {
		if cand.Provider == nil {
			continue
		}
		pubkey, err := cand.Provider.Connect(ctx, false)
		if err != nil {
			if IsUserRejection(err) {
				return nil, types.Errorf(types.ErrUserRejected, "connection rejected in %s", cand.Label)
			}
			return nil, fmt.Errorf("connecting %s: %w", cand.Label, err)
		}
		return &types.WalletDescriptor{
			Ecosystem: types.EcosystemSolana,
			Label:     cand.Label,
			Address:   pubkey,
			Connected: true,
			Provider:  cand.Provider,
		}, nil
	}
	return nil, types.Errorf(types.ErrNoWallet, "no Solana wallet extension detected; install Phantom or a compatible wallet")
}
