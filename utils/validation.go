package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seedlabs/entrygate/types"
)

var validate = validator.New()

// ValidateVerificationRequest checks struct tags plus per-ecosystem address
// and hash shapes before the request leaves the process.
func ValidateVerificationRequest(req *types.VerificationRequest) error {
	if err := validate.Struct(req); err != nil {
		return types.Errorf(types.ErrInvalidRequest, "validation failed: %v", err)
	}

	eco := ecosystemFromChainType(req.ChainType)
	if eco == "" {
		return types.Errorf(types.ErrInvalidRequest, "unknown chainType %q", req.ChainType)
	}

	// Free activations carry no transaction at all.
	if req.TxHash == "" && req.AmountOverrideUSD != nil && *req.AmountOverrideUSD == 0 {
		return nil
	}

	if err := ValidateTransactionHash(req.TxHash, eco); err != nil {
		return types.Errorf(types.ErrInvalidRequest, "txHash: %v", err)
	}
	if err := ValidateAddress(req.ClaimedSenderWallet, eco); err != nil {
		return types.Errorf(types.ErrInvalidRequest, "claimedSenderWallet: %v", err)
	}
	return nil
}

// ValidateTransactionHash validates hash shape for the given ecosystem.
func ValidateTransactionHash(hash string, eco types.Ecosystem) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}

	switch eco {
	case types.EcosystemEVM:
		if !strings.HasPrefix(hash, "0x") {
			return fmt.Errorf("EVM transaction hash must start with 0x")
		}
		if len(hash) != 66 {
			return fmt.Errorf("EVM transaction hash must be 66 characters long")
		}
		if !isHexString(hash[2:]) {
			return fmt.Errorf("EVM transaction hash must be valid hex")
		}

	case types.EcosystemSolana:
		if len(hash) < 80 || len(hash) > 90 {
			return fmt.Errorf("Solana transaction signature has invalid length")
		}
		if !isBase58String(hash) {
			return fmt.Errorf("Solana transaction signature must be valid base58")
		}

	case types.EcosystemCardano:
		if len(hash) != 64 {
			return fmt.Errorf("Cardano transaction hash must be 64 characters long")
		}
		if !isHexString(hash) {
			return fmt.Errorf("Cardano transaction hash must be valid hex")
		}

	default:
		return fmt.Errorf("unsupported ecosystem for transaction hash validation")
	}

	return nil
}

// ValidateAddress validates address shape for the given ecosystem.
func ValidateAddress(address string, eco types.Ecosystem) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch eco {
	case types.EcosystemEVM:
		if !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("EVM address must start with 0x")
		}
		if len(address) != 42 {
			return fmt.Errorf("EVM address must be 42 characters long")
		}
		if !isHexString(address[2:]) {
			return fmt.Errorf("EVM address must be valid hex")
		}

	case types.EcosystemSolana:
		if len(address) < 32 || len(address) > 44 {
			return fmt.Errorf("Solana address has invalid length")
		}
		if !isBase58String(address) {
			return fmt.Errorf("Solana address must be valid base58")
		}

	case types.EcosystemCardano:
		// Bech32 payment addresses (addr1...) or hex CBOR bytes from CIP-30.
		if !strings.HasPrefix(address, "addr1") && !strings.HasPrefix(address, "addr_test1") && !isHexString(address) {
			return fmt.Errorf("Cardano address must be bech32 or CBOR hex")
		}

	default:
		return fmt.Errorf("unsupported ecosystem for address validation")
	}

	return nil
}

func ecosystemFromChainType(chainType string) types.Ecosystem {
	switch strings.ToLower(chainType) {
	case "evm":
		return types.EcosystemEVM
	case "solana":
		return types.EcosystemSolana
	case "cardano":
		return types.EcosystemCardano
	}
	return ""
}

func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isBase58String(s string) bool {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}
