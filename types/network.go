package types

// Ecosystem is one of the three independent blockchain families the entry
// fee can be paid through. Each carries its own address format, wallet API
// and transfer mechanics.
type Ecosystem string

const (
	EcosystemEVM     Ecosystem = "EVM"
	EcosystemSolana  Ecosystem = "SOLANA"
	EcosystemCardano Ecosystem = "CARDANO"
)

func (e Ecosystem) String() string { return string(e) }

// Valid reports whether the ecosystem is one of the supported families.
func (e Ecosystem) Valid() bool {
	switch e {
	case EcosystemEVM, EcosystemSolana, EcosystemCardano:
		return true
	}
	return false
}

// ChainType is the lowercase wire name used in verification requests.
func (e Ecosystem) ChainType() string {
	switch e {
	case EcosystemEVM:
		return "evm"
	case EcosystemSolana:
		return "solana"
	case EcosystemCardano:
		return "cardano"
	}
	return "unknown"
}

// Well-known EVM chain ids accepted for entry payments.
const (
	ChainIDEthereum = 1
	ChainIDBase     = 8453
	ChainIDPolygon  = 137
)

// EVMChainName maps a chain id to the wire name used by the Verification
// Service. Unknown ids map to "evm".
func EVMChainName(chainID int64) string {
	switch chainID {
	case ChainIDEthereum:
		return "ethereum"
	case ChainIDBase:
		return "base"
	case ChainIDPolygon:
		return "polygon"
	}
	return "evm"
}
