package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seedlabs/entrygate/types"
)

// EVMProvider is the EIP-1193-style request bridge exposed by an injected
// EVM wallet extension.
type EVMProvider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// EVMCandidate is one named provider signature to probe, in priority order:
// the dominant extension first, then named alternatives, then a generic
// fallback.
type EVMCandidate struct {
	Label    string
	Provider EVMProvider
}

// EVMDiscovery probes an ordered list of EVM provider candidates.
type EVMDiscovery struct {
	candidates []EVMCandidate
}

var _ Capability = (*EVMDiscovery)(nil)

func NewEVMDiscovery(candidates []EVMCandidate) *EVMDiscovery {
	return &EVMDiscovery{candidates: candidates}
}

func (d *EVMDiscovery) Ecosystem() types.Ecosystem { return types.EcosystemEVM }

// Probe returns a descriptor for the first present provider, asking only for
// already-authorized accounts (eth_accounts, non-prompting). Absence of any
// provider yields (nil, nil).
func (d *EVMDiscovery) Probe(ctx context.Context) (*types.WalletDescriptor, error) {
	for _, cand := range d.candidates {
		if cand.Provider == nil {
			continue
		}
		desc := &types.WalletDescriptor{
			Ecosystem: types.EcosystemEVM,
			Label:     cand.Label,
			Provider:  cand.Provider,
		}
		accounts, err := requestAccounts(ctx, cand.Provider, "eth_accounts")
		if err != nil {
			// A broken candidate must not abort probing of the next.
			continue
		}
		if len(accounts) > 0 {
			desc.Address = accounts[0]
			desc.Connected = true
		}
		return desc, nil
	}
	return nil, nil
}

// Connect prompts the first present provider for account access
// (eth_requestAccounts).
func (d *EVMDiscovery) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	for _, cand := range d.candidates {
		if cand.Provider == nil {
			continue
		}
		accounts, err := requestAccounts(ctx, cand.Provider, "eth_requestAccounts")
		if err != nil {
			if IsUserRejection(err) {
				return nil, types.Errorf(types.ErrUserRejected, "connection rejected in %s", cand.Label)
			}
			return nil, fmt.Errorf("connecting %s: %w", cand.Label, err)
		}
		if len(accounts) == 0 {
			return nil, types.Errorf(types.ErrNoWallet, "%s returned no accounts", cand.Label)
		}
		return &types.WalletDescriptor{
			Ecosystem: types.EcosystemEVM,
			Label:     cand.Label,
			Address:   accounts[0],
			Connected: true,
			Provider:  cand.Provider,
		}, nil
	}
	return nil, types.Errorf(types.ErrNoWallet, "no EVM wallet extension detected; install MetaMask or a compatible wallet")
}

func requestAccounts(ctx context.Context, provider EVMProvider, method string) ([]string, error) {
	raw, err := provider.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("malformed %s response: %w", method, err)
	}
	return accounts, nil
}
