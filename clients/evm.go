package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/utils"
	"github.com/seedlabs/entrygate/wallet"
)

// transfer(address,uint256)
const erc20TransferSelector = "a9059cbb"

// EVMConfig describes the token and chain an EVM entry payment uses.
type EVMConfig struct {
	ChainID       int64
	TokenContract string
	TokenDecimals int
	Treasury      string
}

// EVMBuilder submits an ERC-20 token transfer through an injected EVM
// wallet. Amounts at 6 decimal places stay far below the float64
// safe-integer ceiling, so calldata is encoded with plain hex padding and no
// big-integer arithmetic.
type EVMBuilder struct {
	discovery *wallet.EVMDiscovery
	cfg       EVMConfig
	log       logger.Logger

	provider wallet.EVMProvider
	from     string
}

var (
	_ Builder         = (*EVMBuilder)(nil)
	_ NetworkSwitcher = (*EVMBuilder)(nil)
)

func NewEVMBuilder(discovery *wallet.EVMDiscovery, cfg EVMConfig, log logger.Logger) *EVMBuilder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &EVMBuilder{discovery: discovery, cfg: cfg, log: log}
}

func (b *EVMBuilder) Ecosystem() types.Ecosystem { return types.EcosystemEVM }

// Connect prompts the wallet for account access and pins the provider handle
// used by the rest of the flow.
func (b *EVMBuilder) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	desc, err := b.discovery.Connect(ctx)
	if err != nil {
		return nil, err
	}
	provider, ok := desc.Provider.(wallet.EVMProvider)
	if !ok {
		return nil, types.Errorf(types.ErrNoWallet, "wallet descriptor carries no usable EVM provider")
	}
	b.provider = provider
	b.from = desc.Address
	return desc, nil
}

// EnsureNetwork reads the wallet's current chain id and requests a switch
// when it differs from the configured one. A wallet that does not know the
// chain at all (EIP-1193 code 4902) gets a distinct "add this network"
// error instead of a generic failure.
func (b *EVMBuilder) EnsureNetwork(ctx context.Context) error {
	if b.provider == nil {
		return types.Errorf(types.ErrNoWallet, "connect a wallet before switching networks")
	}

	raw, err := b.provider.Request(ctx, "eth_chainId")
	if err != nil {
		return fmt.Errorf("reading wallet chain id: %w", err)
	}
	var chainHex string
	if err := json.Unmarshal(raw, &chainHex); err != nil {
		return fmt.Errorf("malformed eth_chainId response: %w", err)
	}
	current, err := hexutil.DecodeUint64(chainHex)
	if err != nil {
		return fmt.Errorf("malformed chain id %q: %w", chainHex, err)
	}
	if int64(current) == b.cfg.ChainID {
		return nil
	}

	b.log.Info("requesting chain switch", map[string]any{
		"from": current,
		"to":   b.cfg.ChainID,
	})
	_, err = b.provider.Request(ctx, "wallet_switchEthereumChain",
		map[string]string{"chainId": hexutil.EncodeUint64(uint64(b.cfg.ChainID))})
	if err != nil {
		var rpcErr *wallet.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == wallet.CodeEVMUnknownChain {
			return types.Errorf(types.ErrUnknownNetwork,
				"your wallet does not know chain %d; add this network first", b.cfg.ChainID)
		}
		if wallet.IsUserRejection(err) {
			return types.Errorf(types.ErrUserRejected, "network switch rejected in wallet")
		}
		return fmt.Errorf("switching chain: %w", err)
	}
	return nil
}

// SendEntryFee encodes an ERC-20 transfer to the treasury and submits it via
// eth_sendTransaction, returning the transaction hash immediately without
// waiting for confirmation.
func (b *EVMBuilder) SendEntryFee(ctx context.Context, amountUSD float64) (*SendReceipt, error) {
	if b.provider == nil || b.from == "" {
		return nil, types.Errorf(types.ErrNoWallet, "connect a wallet before sending")
	}

	data, err := EncodeERC20Transfer(b.cfg.Treasury, amountUSD, b.cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"from":    b.from,
		"to":      b.cfg.TokenContract,
		"data":    data,
		"chainId": hexutil.EncodeUint64(uint64(b.cfg.ChainID)),
	}
	raw, err := b.provider.Request(ctx, "eth_sendTransaction", params)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return nil, types.Errorf(types.ErrUserRejected, "transaction rejected in wallet")
		}
		return nil, fmt.Errorf("submitting transfer: %w", err)
	}
	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return nil, fmt.Errorf("malformed eth_sendTransaction response: %w", err)
	}

	b.log.Info("erc20 transfer submitted", map[string]any{
		"txHash": txHash,
		"chain":  b.cfg.ChainID,
	})
	return &SendReceipt{
		TxHash:       txHash,
		SenderWallet: b.from,
		Chain:        types.EVMChainName(b.cfg.ChainID),
	}, nil
}

// EncodeERC20Transfer builds transfer(address,uint256) calldata: the 4-byte
// selector, the 32-byte left-padded recipient, then the 32-byte big-endian
// amount. Values fit in uint64 so plain hex formatting is exact.
func EncodeERC20Transfer(recipient string, amountUSD float64, decimals int) (string, error) {
	if !common.IsHexAddress(recipient) {
		return "", types.Errorf(types.ErrInvalidRequest, "invalid treasury address %q", recipient)
	}
	raw, err := utils.EncodeTokenAmount(amountUSD, decimals)
	if err != nil {
		return "", err
	}

	addr := common.HexToAddress(recipient)
	paddedAddr := fmt.Sprintf("%064s", strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")))
	paddedAmount := fmt.Sprintf("%064x", raw)
	return "0x" + erc20TransferSelector + paddedAddr + paddedAmount, nil
}
