// Package entrygate provides the one-time entry-fee payment subsystem:
// wallet discovery across EVM, Solana and Cardano, transaction builders for
// each family, and idempotent verification against the payment service.
package entrygate

import (
	"context"
	"net/http"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/seedlabs/entrygate/clients"
	"github.com/seedlabs/entrygate/config"
	"github.com/seedlabs/entrygate/gateway"
	"github.com/seedlabs/entrygate/idempotency"
	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/metrics"
	"github.com/seedlabs/entrygate/orchestrator"
	"github.com/seedlabs/entrygate/rates"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/wallet"
)

// PurchaseParams selects what to buy and through which chain family.
type PurchaseParams struct {
	Ecosystem types.Ecosystem
	Product   types.PaymentProduct
	Invite    *types.InviteRecord
}

// EntryGate is the main entry point. Register the wallet bridges available
// in the host environment, then Discover and Purchase.
type EntryGate struct {
	cfg        *config.Config
	log        logger.Logger
	rec        metrics.Recorder
	httpClient *http.Client
	tokens     gateway.TokenProvider

	registry *wallet.Registry
	keys     *idempotency.Manager
	verifier *gateway.Client
	rates    *rates.Client

	orchestrators map[types.Ecosystem]*orchestrator.Orchestrator
}

// New creates an EntryGate from configuration. A nil config uses defaults.
// No ecosystems are available until their wallets are registered.
func New(cfg *config.Config, opts ...Option) *EntryGate {
	if cfg == nil {
		cfg = config.Default()
	}

	g := &EntryGate{
		cfg:           cfg,
		log:           logger.NoopLogger{},
		rec:           metrics.NoopRecorder{},
		httpClient:    &http.Client{Timeout: cfg.Gateway.Timeout},
		registry:      wallet.NewRegistry(),
		orchestrators: make(map[types.Ecosystem]*orchestrator.Orchestrator),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.tokens == nil {
		token := cfg.Gateway.AuthToken
		g.tokens = func(context.Context) (string, error) { return token, nil }
	}

	var store idempotency.Store
	if cfg.Idempotency.StorePath != "" {
		store = idempotency.NewFileStore(cfg.Idempotency.StorePath)
	}
	g.keys = idempotency.NewManager(store)

	g.verifier = gateway.NewClient(cfg.Gateway.Endpoint, g.tokens, g.httpClient, g.log)
	g.rates = rates.NewClient(rates.Config{
		BaseURL:          cfg.RatesAPI.BaseURL,
		APIKey:           cfg.RatesAPI.APIKey,
		Timeout:          cfg.RatesAPI.Timeout,
		MaxRetries:       cfg.RatesAPI.MaxRetries,
		RetryBackoffBase: cfg.RatesAPI.RetryBackoffBase,
	}, g.httpClient, g.log)

	return g
}

// RegisterEVMWallets installs the injected EVM providers found in the host
// environment and enables EVM purchases.
func (g *EntryGate) RegisterEVMWallets(candidates []wallet.EVMCandidate) {
	discovery := wallet.NewEVMDiscovery(candidates)
	g.registry.Register(discovery)

	builder := clients.NewEVMBuilder(discovery, clients.EVMConfig{
		ChainID:       g.cfg.EVM.ChainID,
		TokenContract: g.cfg.EVM.TokenContract,
		TokenDecimals: g.cfg.EVM.TokenDecimals,
		Treasury:      g.cfg.EVM.Treasury,
	}, g.log)
	g.install(builder)
}

// RegisterSolanaWallets installs the injected Solana providers. rpcClient
// may be nil when the RPC layer is unavailable; sends then fail fast with a
// manual-payment hint instead of at signing time.
func (g *EntryGate) RegisterSolanaWallets(candidates []wallet.SolanaCandidate, rpcClient *rpc.Client) {
	discovery := wallet.NewSolanaDiscovery(candidates)
	g.registry.Register(discovery)

	builder := clients.NewSolanaBuilder(discovery, clients.SolanaConfig{
		Mint:          g.cfg.Solana.Mint,
		TokenDecimals: g.cfg.Solana.TokenDecimals,
		Treasury:      g.cfg.Solana.Treasury,
		Cluster:       g.cfg.Solana.Cluster,
	}, rpcClient, g.log)
	g.install(builder)
}

// RegisterCardanoWallets installs the injected Cardano wallets and enables
// ADA purchases priced through the rate oracle.
func (g *EntryGate) RegisterCardanoWallets(candidates []wallet.CardanoCandidate) {
	discovery := wallet.NewCardanoDiscovery(candidates)
	g.registry.Register(discovery)

	builder := clients.NewCardanoBuilder(discovery, clients.CardanoConfig{
		Treasury:          g.cfg.Cardano.Treasury,
		FallbackUSDPerADA: g.cfg.Cardano.FallbackUSDPerADA,
		Network:           g.cfg.Cardano.Network,
	}, g.rates, g.log)
	g.install(builder)
}

func (g *EntryGate) install(builder clients.Builder) {
	g.orchestrators[builder.Ecosystem()] = orchestrator.New(builder, g.verifier, g.keys, g.log, g.rec)
}

// Supported lists the ecosystems with a registered builder.
func (g *EntryGate) Supported() []types.Ecosystem {
	out := make([]types.Ecosystem, 0, len(g.orchestrators))
	for eco := range g.orchestrators {
		out = append(out, eco)
	}
	return out
}

// Discover probes one ecosystem's wallets without prompting the user.
func (g *EntryGate) Discover(ctx context.Context, eco types.Ecosystem) (*types.WalletDescriptor, error) {
	cap, err := g.registry.Lookup(eco)
	if err != nil {
		return nil, err
	}
	return cap.Probe(ctx)
}

// DiscoverAll probes every registered ecosystem. Probe failures become
// disconnected descriptors rather than errors, so one broken extension
// cannot hide the others.
func (g *EntryGate) DiscoverAll(ctx context.Context) []types.WalletDescriptor {
	out := make([]types.WalletDescriptor, 0, len(g.registry.Ecosystems()))
	for _, eco := range g.registry.Ecosystems() {
		cap, err := g.registry.Lookup(eco)
		if err != nil {
			continue
		}
		desc, err := cap.Probe(ctx)
		if err != nil || desc == nil {
			g.log.Debug("wallet probe failed", map[string]any{"ecosystem": eco.String()})
			out = append(out, types.WalletDescriptor{Ecosystem: eco})
			continue
		}
		out = append(out, *desc)
	}
	return out
}

// Purchase runs a full payment attempt through the selected ecosystem and
// reports progress through onStep. The idempotency key survives every
// outcome except terminal success.
func (g *EntryGate) Purchase(ctx context.Context, params PurchaseParams, onStep orchestrator.StepFunc) (*types.PaymentAttempt, *types.VerificationResult, error) {
	if !params.Product.Active {
		return nil, nil, types.Errorf(types.ErrNoActiveProduct, "product %q is not active", params.Product.ID)
	}
	orch, ok := g.orchestrators[params.Ecosystem]
	if !ok {
		return nil, nil, types.Errorf(types.ErrUnsupportedChain, "no builder registered for %s", params.Ecosystem)
	}
	return orch.Run(ctx, orchestrator.PurchaseParams{Product: params.Product, Invite: params.Invite}, onStep)
}

// IdempotencyKey exposes the current key for diagnostics.
func (g *EntryGate) IdempotencyKey() (string, bool, error) {
	return g.keys.CurrentKey()
}

// AbandonAttempt discards the current idempotency key so the next purchase
// starts fresh. Call it when the user explicitly cancels an attempt; a key
// abandoned mid-verification can no longer dedupe that payment.
func (g *EntryGate) AbandonAttempt() error {
	return g.keys.ClearKey()
}
