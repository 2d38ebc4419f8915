package clients

import (
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/utils"
	"github.com/seedlabs/entrygate/wallet"
)

// SolanaConfig describes the SPL token an entry payment uses.
type SolanaConfig struct {
	Mint          string
	TokenDecimals int
	Treasury      string
	Cluster       string
}

// SolanaBuilder transfers an SPL token amount with checked-transfer
// semantics, which embed the decimal count to prevent magnitude mistakes.
// The wallet signs; this builder derives accounts, fetches the blockhash,
// broadcasts and waits for the confirmed commitment.
type SolanaBuilder struct {
	discovery *wallet.SolanaDiscovery
	cfg       SolanaConfig
	rpc       *rpc.Client
	log       logger.Logger

	provider wallet.SolanaProvider
	sender   solana.PublicKey
}

var _ Builder = (*SolanaBuilder)(nil)

const (
	confirmPollInterval = 3 * time.Second
	confirmPollAttempts = 10
)

// NewSolanaBuilder wires the builder to an RPC client. A nil client means
// the chain-interaction stack is unavailable in this runtime; the builder
// then fails fast and steers the user to the manual payment path.
func NewSolanaBuilder(discovery *wallet.SolanaDiscovery, cfg SolanaConfig, rpcClient *rpc.Client, log logger.Logger) *SolanaBuilder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &SolanaBuilder{discovery: discovery, cfg: cfg, rpc: rpcClient, log: log}
}

func (b *SolanaBuilder) Ecosystem() types.Ecosystem { return types.EcosystemSolana }

func (b *SolanaBuilder) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	desc, err := b.discovery.Connect(ctx)
	if err != nil {
		return nil, err
	}
	provider, ok := desc.Provider.(wallet.SolanaProvider)
	if !ok {
		return nil, types.Errorf(types.ErrNoWallet, "wallet descriptor carries no usable Solana provider")
	}
	sender, err := solana.PublicKeyFromBase58(desc.Address)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidRequest, "wallet returned an invalid public key: %v", err)
	}
	b.provider = provider
	b.sender = sender
	return desc, nil
}

// SendEntryFee builds one transfer-checked instruction between the sender's
// and treasury's associated token accounts, has the wallet sign it, then
// broadcasts and polls until the confirmed commitment.
func (b *SolanaBuilder) SendEntryFee(ctx context.Context, amountUSD float64) (*SendReceipt, error) {
	if b.rpc == nil {
		return nil, types.Errorf(types.ErrChainUnavailable,
			"Solana libraries are unavailable in this runtime; use the manual payment option instead")
	}
	if b.provider == nil {
		return nil, types.Errorf(types.ErrNoWallet, "connect a wallet before sending")
	}

	raw, err := utils.EncodeTokenAmount(amountUSD, b.cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}

	mint, err := solana.PublicKeyFromBase58(b.cfg.Mint)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidRequest, "invalid mint address: %v", err)
	}
	treasury, err := solana.PublicKeyFromBase58(b.cfg.Treasury)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidRequest, "invalid treasury address: %v", err)
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(b.sender, mint)
	if err != nil {
		return nil, fmt.Errorf("deriving sender token account: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(treasury, mint)
	if err != nil {
		return nil, fmt.Errorf("deriving treasury token account: %w", err)
	}

	inst := token.NewTransferCheckedInstruction(
		raw,
		uint8(b.cfg.TokenDecimals),
		sourceATA,
		mint,
		destATA,
		b.sender,
		nil,
	).Build()

	blockhash, err := b.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("fetching blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(b.sender),
	)
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}

	unsigned, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serializing transaction: %w", err)
	}
	signedBytes, err := b.provider.SignTransaction(ctx, unsigned)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return nil, types.Errorf(types.ErrUserRejected, "transaction rejected in wallet")
		}
		return nil, fmt.Errorf("wallet signing failed: %w", err)
	}

	signedTx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(signedBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding signed transaction: %w", err)
	}

	sig, err := b.rpc.SendTransaction(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}
	b.log.Info("spl transfer broadcast", map[string]any{"signature": sig.String()})

	if err := b.awaitConfirmed(ctx, sig); err != nil {
		return nil, err
	}
	return &SendReceipt{
		TxHash:       sig.String(),
		SenderWallet: b.sender.String(),
		Chain:        b.cfg.Cluster,
	}, nil
}

func (b *SolanaBuilder) awaitConfirmed(ctx context.Context, sig solana.Signature) error {
	for i := 0; i < confirmPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmPollInterval):
		}

		status, err := b.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(status.Value) == 0 || status.Value[0] == nil {
			continue
		}
		switch status.Value[0].ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
	return types.Errorf(types.ErrVerification,
		"transaction %s not confirmed yet; verification can be retried", sig.String())
}
