// Package wallet probes the runtime environment for injected wallet
// capabilities and returns normalized descriptors without prompting the
// user. Wallet extensions are external, untrusted collaborators: this
// package only talks to them through narrow bridge interfaces and never
// touches key material.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/seedlabs/entrygate/types"
)

// Capability is the per-ecosystem wallet surface. Probe must never trigger a
// user prompt; Connect may.
type Capability interface {
	Ecosystem() types.Ecosystem
	Probe(ctx context.Context) (*types.WalletDescriptor, error)
	Connect(ctx context.Context) (*types.WalletDescriptor, error)
}

// Registry selects a Capability by ecosystem.
type Registry struct {
	caps map[types.Ecosystem]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[types.Ecosystem]Capability)}
}

// Register installs a capability, replacing any previous one for the same
// ecosystem.
func (r *Registry) Register(cap Capability) {
	r.caps[cap.Ecosystem()] = cap
}

// Lookup returns the capability for the ecosystem.
func (r *Registry) Lookup(eco types.Ecosystem) (Capability, error) {
	cap, ok := r.caps[eco]
	if !ok {
		return nil, types.Errorf(types.ErrUnsupportedChain, "no wallet capability registered for %s", eco)
	}
	return cap, nil
}

// Ecosystems lists the registered ecosystems.
func (r *Registry) Ecosystems() []types.Ecosystem {
	out := make([]types.Ecosystem, 0, len(r.caps))
	for eco := range r.caps {
		out = append(out, eco)
	}
	return out
}

// RPCError is a structured error surfaced by an injected provider. EVM
// providers use EIP-1193 codes (4001 user rejection, 4902 unrecognized
// chain); CIP-30 wallets use their own small code space.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// EIP-1193 and CIP-30 rejection codes observed in the wild.
const (
	CodeEVMUserRejected   = 4001
	CodeEVMUnknownChain   = 4902
	CodeCIP30Refused      = 2
	CodeCIP30SignDeclined = -3
)

// IsUserRejection reports whether the error is the user declining a wallet
// prompt, across all three ecosystems.
func IsUserRejection(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	switch rpcErr.Code {
	case CodeEVMUserRejected, CodeCIP30Refused, CodeCIP30SignDeclined:
		return true
	}
	return false
}
