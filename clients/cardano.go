package clients

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/utils"
	"github.com/seedlabs/entrygate/wallet"
)

// RateSource supplies the USD-per-ADA conversion rate.
type RateSource interface {
	USDPerADA(ctx context.Context) (float64, error)
}

// CardanoConfig describes the treasury and rate fallback for ADA payments.
type CardanoConfig struct {
	Treasury string
	// FallbackUSDPerADA is used when the oracle is unreachable. A
	// conservatively low rate sends more lovelace, never less.
	FallbackUSDPerADA float64
	Network           string
}

// Flat fee reserved when assembling a transaction manually. Generous on
// purpose; the wallet's own builder is preferred whenever available.
const manualAssemblyFeeLovelace = 200_000

// CardanoBuilder transfers a lovelace amount equivalent to the USD price.
// It prefers the wallet's native send capability; otherwise it assembles a
// transaction from the wallet's UTXOs and has the wallet sign and submit it.
type CardanoBuilder struct {
	discovery *wallet.CardanoDiscovery
	cfg       CardanoConfig
	rates     RateSource
	log       logger.Logger

	api     wallet.CardanoAPI
	address string
}

var _ Builder = (*CardanoBuilder)(nil)

func NewCardanoBuilder(discovery *wallet.CardanoDiscovery, cfg CardanoConfig, rates RateSource, log logger.Logger) *CardanoBuilder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &CardanoBuilder{discovery: discovery, cfg: cfg, rates: rates, log: log}
}

func (b *CardanoBuilder) Ecosystem() types.Ecosystem { return types.EcosystemCardano }

func (b *CardanoBuilder) Connect(ctx context.Context) (*types.WalletDescriptor, error) {
	desc, err := b.discovery.Connect(ctx)
	if err != nil {
		return nil, err
	}
	w, ok := desc.Provider.(wallet.CardanoWallet)
	if !ok {
		return nil, types.Errorf(types.ErrNoWallet, "wallet descriptor carries no usable Cardano wallet")
	}
	api, err := w.Enable(ctx)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return nil, types.Errorf(types.ErrUserRejected, "connection rejected in wallet")
		}
		return nil, fmt.Errorf("enabling wallet: %w", err)
	}
	b.api = api
	b.address = desc.Address
	return desc, nil
}

// SendEntryFee converts the USD amount to lovelace at the oracle rate (or
// the hard-coded fallback) and sends it to the treasury.
func (b *CardanoBuilder) SendEntryFee(ctx context.Context, amountUSD float64) (*SendReceipt, error) {
	if b.api == nil {
		return nil, types.Errorf(types.ErrNoWallet, "connect a wallet before sending")
	}

	rate := b.resolveRate(ctx)
	lovelace, err := utils.LovelaceFromUSD(amountUSD, rate)
	if err != nil {
		return nil, err
	}

	if sender, ok := b.api.(wallet.LovelaceSender); ok {
		txHash, err := sender.SendLovelace(ctx, b.cfg.Treasury, lovelace)
		if err != nil {
			if wallet.IsUserRejection(err) {
				return nil, types.Errorf(types.ErrUserRejected, "transaction rejected in wallet")
			}
			return nil, fmt.Errorf("wallet send failed: %w", err)
		}
		return b.receipt(txHash), nil
	}

	txHash, err := b.sendManual(ctx, lovelace)
	if err != nil {
		return nil, err
	}
	return b.receipt(txHash), nil
}

func (b *CardanoBuilder) resolveRate(ctx context.Context) float64 {
	if b.rates != nil {
		if rate, err := b.rates.USDPerADA(ctx); err == nil && rate > 0 {
			return rate
		}
		b.log.Warn("ADA rate lookup failed, using fallback rate", map[string]any{
			"fallback": b.cfg.FallbackUSDPerADA,
		})
	}
	return b.cfg.FallbackUSDPerADA
}

func (b *CardanoBuilder) receipt(txHash string) *SendReceipt {
	return &SendReceipt{
		TxHash:       txHash,
		SenderWallet: b.address,
		Chain:        b.cfg.Network,
	}
}

// sendManual assembles a transaction by hand: select UTXOs largest-first,
// one output to the treasury, change back to the sender, wallet-sign the
// serialized body, then submit the witnessed transaction through the
// wallet. Every failure here suggests the manual/off-band payment path,
// which is a different remedy than retrying a network error.
func (b *CardanoBuilder) sendManual(ctx context.Context, lovelace uint64) (string, error) {
	utxoHexes, err := b.api.GetUtxos(ctx)
	if err != nil {
		return "", b.manualErr("reading wallet UTXOs failed: %v", err)
	}
	if len(utxoHexes) == 0 {
		return "", b.manualErr("the wallet reports no spendable UTXOs")
	}

	utxos := make([]parsedUtxo, 0, len(utxoHexes))
	for _, h := range utxoHexes {
		u, err := parseUtxo(h)
		if err != nil {
			// Skip multi-asset or otherwise unparsable UTXOs.
			continue
		}
		utxos = append(utxos, u)
	}
	if len(utxos) == 0 {
		return "", b.manualErr("no plain-ADA UTXOs available for manual assembly")
	}

	sort.Slice(utxos, func(i, j int) bool { return utxos[i].lovelace > utxos[j].lovelace })

	need := lovelace + manualAssemblyFeeLovelace
	var selected []parsedUtxo
	var total uint64
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.lovelace
		if total >= need {
			break
		}
	}
	if total < need {
		return "", b.manualErr("wallet balance %d lovelace is below the required %d", total, need)
	}

	changeAddrHex, err := b.api.GetChangeAddress(ctx)
	if err != nil {
		return "", b.manualErr("reading change address failed: %v", err)
	}
	treasuryAddr, err := addressBytes(b.cfg.Treasury)
	if err != nil {
		return "", b.manualErr("treasury address is not usable: %v", err)
	}
	changeAddr, err := addressBytes(changeAddrHex)
	if err != nil {
		return "", b.manualErr("change address is not usable: %v", err)
	}

	txHex, err := buildUnsignedTx(selected, treasuryAddr, lovelace, changeAddr, total-need)
	if err != nil {
		return "", b.manualErr("assembling transaction failed: %v", err)
	}

	witnessHex, err := b.api.SignTx(ctx, txHex, true)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return "", types.Errorf(types.ErrUserRejected, "transaction rejected in wallet")
		}
		return "", b.manualErr("wallet signing failed: %v", err)
	}

	signedHex, err := assembleSignedTx(txHex, witnessHex)
	if err != nil {
		return "", b.manualErr("attaching witnesses failed: %v", err)
	}

	txHash, err := b.api.SubmitTx(ctx, signedHex)
	if err != nil {
		return "", b.manualErr("submitting transaction failed: %v", err)
	}
	b.log.Info("lovelace transfer submitted", map[string]any{"txHash": txHash})
	return txHash, nil
}

func (b *CardanoBuilder) manualErr(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return types.Errorf(types.ErrManualPayment,
		"%s; consider the manual payment option to complete your purchase", msg)
}

// parsedUtxo is the subset of a CIP-30 UTXO the selector needs: the raw
// CBOR input (kept verbatim for re-encoding) and its plain-ADA value.
type parsedUtxo struct {
	input    cbor.RawMessage
	lovelace uint64
}

// parseUtxo decodes a CIP-30 UTXO: [[txhash, index], [address, amount]]
// where amount is either a plain coin value or [coin, multiasset].
func parseUtxo(utxoHex string) (parsedUtxo, error) {
	raw, err := hex.DecodeString(utxoHex)
	if err != nil {
		return parsedUtxo{}, fmt.Errorf("utxo is not hex: %w", err)
	}
	var pair []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return parsedUtxo{}, fmt.Errorf("utxo is not an [input, output] pair")
	}

	var output []cbor.RawMessage
	if err := cbor.Unmarshal(pair[1], &output); err != nil || len(output) < 2 {
		return parsedUtxo{}, fmt.Errorf("utxo output is malformed")
	}

	var coin uint64
	if err := cbor.Unmarshal(output[1], &coin); err != nil {
		// Multi-asset amount: [coin, {policy: {asset: qty}}]. Only the coin
		// part is spendable here; skip these to avoid burning tokens.
		return parsedUtxo{}, fmt.Errorf("utxo carries native assets")
	}
	return parsedUtxo{input: pair[0], lovelace: coin}, nil
}

func addressBytes(addr string) ([]byte, error) {
	// CIP-30 hands addresses around as CBOR address bytes in hex.
	decoded, err := hex.DecodeString(addr)
	if err != nil {
		return nil, fmt.Errorf("address %q is not hex-encoded bytes", addr)
	}
	return decoded, nil
}

// buildUnsignedTx serializes [body, {}, true, null] with body
// {0: inputs, 1: outputs, 2: fee}, the minimal shape CIP-30 SignTx accepts.
func buildUnsignedTx(inputs []parsedUtxo, treasury []byte, amount uint64, change []byte, changeAmount uint64) (string, error) {
	ins := make([]cbor.RawMessage, len(inputs))
	for i, u := range inputs {
		ins[i] = u.input
	}

	outputs := []any{
		[]any{treasury, amount},
	}
	if changeAmount > 0 {
		outputs = append(outputs, []any{change, changeAmount})
	}

	body := map[int]any{
		0: ins,
		1: outputs,
		2: uint64(manualAssemblyFeeLovelace),
	}
	tx := []any{body, map[int]any{}, true, nil}

	encoded, err := cbor.Marshal(tx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(encoded), nil
}

// assembleSignedTx replaces the placeholder witness set with the wallet's.
func assembleSignedTx(txHex, witnessHex string) (string, error) {
	txRaw, err := hex.DecodeString(txHex)
	if err != nil {
		return "", fmt.Errorf("transaction is not hex: %w", err)
	}
	witnessRaw, err := hex.DecodeString(witnessHex)
	if err != nil {
		return "", fmt.Errorf("witness set is not hex: %w", err)
	}

	var tx []cbor.RawMessage
	if err := cbor.Unmarshal(txRaw, &tx); err != nil || len(tx) != 4 {
		return "", fmt.Errorf("unexpected transaction shape")
	}
	signed := []any{tx[0], cbor.RawMessage(witnessRaw), cbor.RawMessage(tx[2]), cbor.RawMessage(tx[3])}

	encoded, err := cbor.Marshal(signed)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(encoded), nil
}
