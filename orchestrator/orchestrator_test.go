package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlabs/entrygate/clients"
	"github.com/seedlabs/entrygate/idempotency"
	"github.com/seedlabs/entrygate/types"
)

type fakeBuilder struct {
	eco         types.Ecosystem
	connectErr  error
	networkErr  error
	sendErr     error
	receipt     *clients.SendReceipt
	sendCalled  bool
	sentAmount  float64
	hasSwitcher bool
}

func (b *fakeBuilder) Ecosystem() types.Ecosystem { return b.eco }

func (b *fakeBuilder) Connect(context.Context) (*types.WalletDescriptor, error) {
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	return &types.WalletDescriptor{Ecosystem: b.eco, Connected: true, Address: "0xabc"}, nil
}

func (b *fakeBuilder) SendEntryFee(_ context.Context, amountUSD float64) (*clients.SendReceipt, error) {
	b.sendCalled = true
	b.sentAmount = amountUSD
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	return b.receipt, nil
}

// switchingBuilder adds the EVM-only network alignment step.
type switchingBuilder struct{ fakeBuilder }

func (b *switchingBuilder) EnsureNetwork(context.Context) error { return b.networkErr }

type fakeVerifier struct {
	result   *types.VerificationResult
	err      error
	requests []*types.VerificationRequest
}

func (v *fakeVerifier) Verify(_ context.Context, req *types.VerificationRequest) (*types.VerificationResult, error) {
	v.requests = append(v.requests, req)
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

func evmReceipt() *clients.SendReceipt {
	return &clients.SendReceipt{
		TxHash:       "0x" + strings.Repeat("11", 32),
		SenderWallet: "0xabc",
		Chain:        "base",
	}
}

func product() types.PaymentProduct {
	return types.PaymentProduct{ID: "prod-1", BaseAmountUSD: 4, Tier: "standard", Active: true}
}

func TestRun_SuccessClearsKeyExactlyOnce(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	before, err := keys.GetOrCreateKey()
	require.NoError(t, err)

	b := &switchingBuilder{fakeBuilder{eco: types.EcosystemEVM, receipt: evmReceipt()}}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationSuccess}}
	o := New(b, v, keys, nil, nil)

	var steps []Step
	attempt, result, err := o.Run(context.Background(), PurchaseParams{Product: product()}, func(s Step) { steps = append(steps, s) })
	require.NoError(t, err)
	assert.Equal(t, types.VerificationSuccess, result.Status)
	assert.Equal(t, types.StateSuccess, attempt.State)
	assert.Equal(t, before, attempt.IdempotencyKey)

	// Terminal success rotates the key.
	after, err := keys.GetOrCreateKey()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	var kinds []StepType
	for _, s := range steps {
		kinds = append(kinds, s.Type)
	}
	assert.Equal(t, []StepType{StepConnecting, StepSwitchingChain, StepSending, StepSent, StepConfirming, StepSuccess}, kinds)
}

func TestRun_PendingPreservesKey(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	before, err := keys.GetOrCreateKey()
	require.NoError(t, err)

	b := &fakeBuilder{eco: types.EcosystemSolana, receipt: &clients.SendReceipt{
		TxHash:       strings.Repeat("4u", 44),
		SenderWallet: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Chain:        "solana",
	}}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationPending}}
	o := New(b, v, keys, nil, nil)

	attempt, result, err := o.Run(context.Background(), PurchaseParams{Product: product()}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationPending, result.Status)
	assert.Equal(t, types.StatePending, attempt.State)

	after, err := keys.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_ConnectRejectionReturnsToIdle(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	before, err := keys.GetOrCreateKey()
	require.NoError(t, err)

	b := &fakeBuilder{
		eco:        types.EcosystemEVM,
		connectErr: types.Errorf(types.ErrUserRejected, "connection rejected in MetaMask"),
	}
	v := &fakeVerifier{}
	o := New(b, v, keys, nil, nil)

	var steps []Step
	attempt, _, err := o.Run(context.Background(), PurchaseParams{Product: product()}, func(s Step) { steps = append(steps, s) })

	var gateErr *types.Error
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, types.ErrUserRejected, gateErr.Code)
	assert.Equal(t, types.StateIdle, attempt.State)
	assert.False(t, b.sendCalled)
	assert.Empty(t, v.requests)

	last := steps[len(steps)-1]
	assert.Equal(t, StepError, last.Type)
	assert.Contains(t, last.Message, "rejected in wallet")

	after, err := keys.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_InvitePriceFlowsThrough(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	cents := int64(150)
	invite := &types.InviteRecord{ID: "inv-1", EntryPriceCents: &cents}

	b := &fakeBuilder{eco: types.EcosystemEVM, receipt: evmReceipt()}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationSuccess}}
	o := New(b, v, keys, nil, nil)

	_, _, err := o.Run(context.Background(), PurchaseParams{Product: product(), Invite: invite}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, b.sentAmount)

	require.Len(t, v.requests, 1)
	req := v.requests[0]
	assert.Equal(t, "inv-1", req.InviteCodeID)
	require.NotNil(t, req.AmountOverrideUSD)
	assert.Equal(t, 1.5, *req.AmountOverrideUSD)
}

func TestRun_WhitelistFreeSkipsBuilder(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	zero := 0.0
	invite := &types.InviteRecord{ID: "inv-wl", Type: types.InviteWhitelist, PriceOverride: &zero}

	b := &fakeBuilder{eco: types.EcosystemEVM}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationSuccess}}
	o := New(b, v, keys, nil, nil)

	var steps []Step
	attempt, result, err := o.Run(context.Background(), PurchaseParams{Product: product(), Invite: invite}, func(s Step) { steps = append(steps, s) })
	require.NoError(t, err)
	assert.Equal(t, types.VerificationSuccess, result.Status)
	assert.Equal(t, types.StateSuccess, attempt.State)
	assert.False(t, b.sendCalled)

	require.Len(t, v.requests, 1)
	req := v.requests[0]
	assert.Empty(t, req.TxHash)
	require.NotNil(t, req.AmountOverrideUSD)
	assert.Equal(t, 0.0, *req.AmountOverrideUSD)

	assert.Equal(t, StepConfirming, steps[0].Type)
}

func TestRun_VerificationErrorStatusIsTerminalErrorState(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	before, err := keys.GetOrCreateKey()
	require.NoError(t, err)

	b := &fakeBuilder{eco: types.EcosystemEVM, receipt: evmReceipt()}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationError, Message: "amount mismatch"}}
	o := New(b, v, keys, nil, nil)

	var steps []Step
	attempt, result, err := o.Run(context.Background(), PurchaseParams{Product: product()}, func(s Step) { steps = append(steps, s) })
	require.NoError(t, err)
	assert.Equal(t, types.VerificationError, result.Status)
	assert.Equal(t, types.StateError, attempt.State)

	last := steps[len(steps)-1]
	assert.Equal(t, StepError, last.Type)
	assert.Equal(t, "amount mismatch", last.Message)

	after, err := keys.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_VerifierFailurePreservesKey(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	before, err := keys.GetOrCreateKey()
	require.NoError(t, err)

	b := &fakeBuilder{eco: types.EcosystemEVM, receipt: evmReceipt()}
	v := &fakeVerifier{err: types.Errorf(types.ErrVerification, "verification request failed: EOF")}
	o := New(b, v, keys, nil, nil)

	_, _, err = o.Run(context.Background(), PurchaseParams{Product: product()}, nil)
	assert.Error(t, err)

	after, err := keys.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_SecondConcurrentAttemptRefused(t *testing.T) {
	keys := idempotency.NewManager(idempotency.NewMemoryStore())
	b := &fakeBuilder{eco: types.EcosystemEVM, receipt: evmReceipt()}
	v := &fakeVerifier{result: &types.VerificationResult{Status: types.VerificationSuccess}}
	o := New(b, v, keys, nil, nil)

	o.running.Store(true)
	_, _, err := o.Run(context.Background(), PurchaseParams{Product: product()}, nil)
	var gateErr *types.Error
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, types.ErrAttemptInProgress, gateErr.Code)
}
