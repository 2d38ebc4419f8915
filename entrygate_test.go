package entrygate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlabs/entrygate/config"
	"github.com/seedlabs/entrygate/orchestrator"
	"github.com/seedlabs/entrygate/types"
	"github.com/seedlabs/entrygate/wallet"
)

type stubEVMProvider struct {
	address string
	txHash  string
}

func (p *stubEVMProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	switch method {
	case "eth_accounts", "eth_requestAccounts":
		return json.Marshal([]string{p.address})
	case "eth_chainId":
		return json.Marshal("0x2105") // Base
	case "eth_sendTransaction":
		return json.Marshal(p.txHash)
	}
	return nil, &wallet.RPCError{Code: -32601, Message: "method not found"}
}

func testConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Gateway.Endpoint = endpoint
	cfg.Gateway.AuthToken = "session-token"
	cfg.EVM.Treasury = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	return cfg
}

func TestPurchase_EVMEndToEnd(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer srv.Close()

	g := New(testConfig(srv.URL), WithHTTPClient(srv.Client()))
	g.RegisterEVMWallets([]wallet.EVMCandidate{{
		Label:    "MetaMask",
		Provider: &stubEVMProvider{address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", txHash: "0x" + strings.Repeat("ab", 32)},
	}})

	assert.Equal(t, []types.Ecosystem{types.EcosystemEVM}, g.Supported())

	var last orchestrator.Step
	attempt, result, err := g.Purchase(context.Background(), PurchaseParams{
		Ecosystem: types.EcosystemEVM,
		Product:   types.PaymentProduct{ID: "prod-1", BaseAmountUSD: 4, Active: true},
	}, func(s orchestrator.Step) { last = s })

	require.NoError(t, err)
	assert.Equal(t, types.VerificationSuccess, result.Status)
	assert.Equal(t, types.StateSuccess, attempt.State)
	assert.Equal(t, orchestrator.StepSuccess, last.Type)

	assert.Equal(t, "Bearer session-token", gotAuth)
	assert.Equal(t, "evm", gotReq["chainType"])
	assert.Equal(t, "base", gotReq["chain"])
	assert.Equal(t, attempt.IdempotencyKey, gotReq["idempotencyKey"])
}

func TestPurchase_InactiveProductRefused(t *testing.T) {
	g := New(testConfig("https://verify.invalid"))
	_, _, err := g.Purchase(context.Background(), PurchaseParams{
		Ecosystem: types.EcosystemEVM,
		Product:   types.PaymentProduct{ID: "prod-1", BaseAmountUSD: 4},
	}, nil)

	var gateErr *types.Error
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, types.ErrNoActiveProduct, gateErr.Code)
}

func TestPurchase_UnregisteredEcosystemRefused(t *testing.T) {
	g := New(testConfig("https://verify.invalid"))
	_, _, err := g.Purchase(context.Background(), PurchaseParams{
		Ecosystem: types.EcosystemCardano,
		Product:   types.PaymentProduct{ID: "prod-1", BaseAmountUSD: 4, Active: true},
	}, nil)

	var gateErr *types.Error
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, types.ErrUnsupportedChain, gateErr.Code)
}

type rejectingEVMProvider struct{}

func (rejectingEVMProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	if method == "eth_accounts" {
		return json.Marshal([]string{})
	}
	return nil, &wallet.RPCError{Code: wallet.CodeEVMUserRejected, Message: "user rejected"}
}

func TestAbandonAttempt_IssuesFreshKey(t *testing.T) {
	g := New(testConfig("https://verify.invalid"))
	g.RegisterEVMWallets([]wallet.EVMCandidate{{Label: "MetaMask", Provider: rejectingEVMProvider{}}})

	params := PurchaseParams{
		Ecosystem: types.EcosystemEVM,
		Product:   types.PaymentProduct{ID: "prod-1", BaseAmountUSD: 4, Active: true},
	}

	attempt, _, err := g.Purchase(context.Background(), params, nil)
	require.Error(t, err)
	require.NotEmpty(t, attempt.IdempotencyKey)

	// A rejection keeps the key for a retry.
	key, ok, err := g.IdempotencyKey()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, attempt.IdempotencyKey, key)

	require.NoError(t, g.AbandonAttempt())
	_, ok, err = g.IdempotencyKey()
	require.NoError(t, err)
	assert.False(t, ok)

	retry, _, err := g.Purchase(context.Background(), params, nil)
	require.Error(t, err)
	assert.NotEqual(t, attempt.IdempotencyKey, retry.IdempotencyKey)
}

func TestDiscoverAll_ProbeDoesNotPrompt(t *testing.T) {
	g := New(testConfig("https://verify.invalid"))
	g.RegisterEVMWallets([]wallet.EVMCandidate{{
		Label:    "Rabby",
		Provider: &stubEVMProvider{address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
	}})

	descs := g.DiscoverAll(context.Background())
	require.Len(t, descs, 1)
	assert.Equal(t, types.EcosystemEVM, descs[0].Ecosystem)
	assert.True(t, descs[0].Connected)
	assert.Equal(t, "Rabby", descs[0].Label)
}
